package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelTrack/config"
	"github.com/BearBump/ParcelTrack/internal/broker/kafka"
	"github.com/BearBump/ParcelTrack/internal/cache/rediscache"
	"github.com/BearBump/ParcelTrack/internal/logging"
	"github.com/BearBump/ParcelTrack/internal/services/parcels"
	"github.com/BearBump/ParcelTrack/internal/storage/mongoparcels"
	"github.com/BearBump/ParcelTrack/internal/storage/pgparcels"
)

type parcelAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    parcelAPIOpts
	svc     *parcels.Service
	closers []func()
}

func mustBootstrapParcelAPI() *parcelAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config: %v", err))
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	grpcAddr := cfg.ParcelTrack.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.ParcelTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.ParcelUpdatedTopicName
	if topic == "" {
		topic = "parcel.updated"
	}
	parcelTTL := time.Duration(cfg.ParcelTrack.ParcelCacheTTLSeconds) * time.Second
	if parcelTTL == 0 {
		parcelTTL = 10 * time.Minute
	}
	locationTTL := time.Duration(cfg.ParcelTrack.LocationCacheTTLSeconds) * time.Second
	if locationTTL == 0 {
		locationTTL = 5 * time.Minute
	}

	app := &parcelAPIApp{}

	repo, closeRepo := mustOpenRepository(cfg, 60*time.Second)
	app.closers = append(app.closers, closeRepo)

	var svc *parcels.Service
	if cfg.Redis.Host != "" {
		rc := rediscache.New(cfg.RedisAddr())
		app.closers = append(app.closers, func() { _ = rc.Close() })
		svc = parcels.New(repo, rc, parcelTTL)
	} else {
		svc = parcels.New(repo, nil, 0)
	}
	svc.WithLocationCacheTTL(locationTTL)

	if cfg.Kafka.Host != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers())
		app.closers = append(app.closers, func() { _ = producer.Close() })
		svc.WithPublisher(producer, topic)
	}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.svc = svc
	app.opts = parcelAPIOpts{
		grpcAddr:    grpcAddr,
		httpAddr:    httpAddr,
		swaggerPath: swaggerPath,
	}
	return app
}

func mustOpenRepository(cfg *config.Config, wait time.Duration) (parcels.Repository, func()) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		st := mustOpenWithRetry("postgres", wait, func() (*pgparcels.Storage, error) {
			return pgparcels.New(cfg.PostgresConnString())
		})
		return st, st.Close
	case "", config.StorageDriverMongo:
		uri := cfg.Mongo.URI
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		name := cfg.Mongo.Name
		if name == "" {
			name = "parceltrack"
		}
		st := mustOpenWithRetry("mongo", wait, func() (*mongoparcels.Storage, error) {
			return mongoparcels.New(uri, name)
		})
		return st, st.Close
	default:
		panic(fmt.Sprintf("unknown storage driver %q", cfg.Storage.Driver))
	}
}

func mustOpenWithRetry[T any](name string, wait time.Duration, open func() (T, error)) T {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := open()
		if err == nil {
			return st
		}
		lastErr = err
		slog.Warn("store is not ready, retrying", "store", name, "err", err)
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("%s is not ready after %s: %v", name, wait, lastErr))
}

func (a *parcelAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *parcelAPIApp) Run() error {
	return runParcelAPI(a.ctx, a.opts, a.svc)
}
