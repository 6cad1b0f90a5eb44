package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ParcelTrack/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type ProducerSuite struct {
	suite.Suite
	wm *writerMock
	p  *Producer
}

func (s *ProducerSuite) SetupTest() {
	s.wm = &writerMock{}
	s.p = newProducerWithWriter(s.wm)
}

func (s *ProducerSuite) TestNewProducer_NotNil() {
	p := NewProducer([]string{"localhost:0"})
	s.Require().NotNil(p)
}

func (s *ProducerSuite) TestNewProducerWithWriter_NotNil() {
	p := newProducerWithWriter(s.wm)
	s.Require().NotNil(p)
}

func (s *ProducerSuite) TestPublish_OK() {
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			return msgs[0].Topic == "parcel.updated" && string(msgs[0].Key) == "p1" && string(msgs[0].Value) == "v"
		})).
		Return(nil).
		Once()

	s.Require().NoError(s.p.Publish(context.Background(), "parcel.updated", []byte("p1"), []byte("v")))
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestPublish_ParcelUpdatedKeyedByParcel() {
	transporter := "t1"
	speed := 12.5
	in := messages.ParcelUpdated{
		ParcelID:      "p1",
		Kind:          messages.KindCarrierLocation,
		Status:        "In Transit",
		SenderID:      "s1",
		TransporterID: &transporter,
		ActorID:       "t1",
		Location:      &messages.Point{Lat: 52.52, Lng: 13.40, Speed: &speed},
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	value, err := json.Marshal(in)
	s.Require().NoError(err)

	var written kafka.Message
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && msgs[0].Topic == "parcel.updated" && string(msgs[0].Key) == "p1"
		})).
		Run(func(args mock.Arguments) { written = args.Get(1).([]kafka.Message)[0] }).
		Return(nil).
		Once()

	s.Require().NoError(s.p.Publish(context.Background(), "parcel.updated", []byte(in.ParcelID), value))
	s.wm.AssertExpectations(s.T())

	var out messages.ParcelUpdated
	s.Require().NoError(json.Unmarshal(written.Value, &out))
	s.Require().Equal(in.Kind, out.Kind)
	s.Require().Equal("t1", *out.TransporterID)
	s.Require().InDelta(52.52, out.Location.Lat, 1e-9)
	s.Require().InDelta(12.5, *out.Location.Speed, 1e-9)
	s.Require().Nil(out.Destination)
	s.Require().True(out.OccurredAt.Equal(in.OccurredAt))
}

func (s *ProducerSuite) TestPublish_ErrorWrapped() {
	want := errors.New("boom")
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(want).Once()

	err := s.p.Publish(context.Background(), "t", []byte("k"), []byte("v"))
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "kafka publish")
	s.wm.AssertExpectations(s.T())
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}


