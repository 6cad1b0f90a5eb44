package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelTrack/config"
	"github.com/BearBump/ParcelTrack/internal/broker/kafka"
	"github.com/BearBump/ParcelTrack/internal/cache/rediscache"
	"github.com/BearBump/ParcelTrack/internal/services/notifier"
	"github.com/BearBump/ParcelTrack/internal/storage/mongoparcels"
	"github.com/BearBump/ParcelTrack/internal/storage/pgparcels"
)

type notificationStore interface {
	notifier.Store
	Ping(ctx context.Context) error
}

type notifierFactories struct {
	newStore       func(cfg *config.Config) (store notificationStore, closeFn func(), err error)
	newRateLimiter func(cfg *config.Config) (notifier.RateLimiter, func())
	newConsumer    func(cfg *config.Config, topic, group string) (notifier.Consumer, func())
}

func defaultNotifierFactories() notifierFactories {
	return notifierFactories{
		newStore: func(cfg *config.Config) (notificationStore, func(), error) {
			switch cfg.Storage.Driver {
			case config.StorageDriverPostgres:
				st, err := pgparcels.New(cfg.PostgresConnString())
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			case "", config.StorageDriverMongo:
				uri := cfg.Mongo.URI
				if uri == "" {
					uri = "mongodb://localhost:27017"
				}
				name := cfg.Mongo.Name
				if name == "" {
					name = "parceltrack"
				}
				st, err := mongoparcels.New(uri, name)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			default:
				return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
			}
		},
		newRateLimiter: func(cfg *config.Config) (notifier.RateLimiter, func()) {
			rl := rediscache.NewRateLimiter(cfg.RedisAddr())
			return rl, func() { _ = rl.Close() }
		},
		newConsumer: func(cfg *config.Config, topic, group string) (notifier.Consumer, func()) {
			c := kafka.NewConsumer(cfg.KafkaBrokers(), topic, group)
			return c, func() { _ = c.Close() }
		},
	}
}

func runParcelNotifier(ctx context.Context, cfg *config.Config, f notifierFactories, onListen func(httpAddr string)) error {
	topic := cfg.Kafka.ParcelUpdatedTopicName
	if topic == "" {
		topic = "parcel.updated"
	}
	group := cfg.ParcelTrack.KafkaConsumerGroup
	if group == "" {
		group = "parcel-notifier"
	}
	httpAddr := cfg.ParcelTrack.NotifierHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}
	cooldown := time.Duration(cfg.ParcelTrack.NotifierNearbyCooldownSeconds) * time.Second

	store, closeStore, err := f.newStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	rl, closeRL := f.newRateLimiter(cfg)
	if closeRL != nil {
		defer closeRL()
	}
	consumer, closeConsumer := f.newConsumer(cfg, topic, group)
	if closeConsumer != nil {
		defer closeConsumer()
	}

	n := notifier.New(store, rl).WithSettings(
		cfg.ParcelTrack.NotifierNearbyRadiusMeters,
		cooldown,
		cfg.ParcelTrack.NotifierDefaultSpeedMps,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runNotifierHTTPServer(ctx, notifierHTTPOpts{
			httpAddr: httpAddr,
			onListen: onListen,
			notifier: n,
			ready:    store,
		})
	}()

	runErr := make(chan error, 1)
	go func() {
		slog.Info("parcel notifier started", "topic", topic, "group", group)
		runErr <- n.Run(ctx, consumer)
	}()

	select {
	case err := <-runErr:
		return err
	case err := <-httpErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}
