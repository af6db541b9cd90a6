package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-parts-shop/internal/config"
	kafkax "github.com/ariefcatur/go-parts-shop/internal/kafka"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/postgres"
	"github.com/ariefcatur/go-parts-shop/internal/reconcile"
	"github.com/ariefcatur/go-parts-shop/internal/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	lg := logging.New(cfg.ServiceName+"-reconciler", cfg.LogLevel)
	if len(cfg.KafkaBrokers) == 0 {
		lg.Fatal("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		lg.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	svc := &reconcile.Service{
		Repo: &orders.RestorationRepo{DB: db},
		Log:  lg,
	}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Dedup = &redisx.Dedup{KV: redisx.Client{RDB: rdb}, Service: "reconciler"}
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, orders.TopicReconciliationNeeded, cfg.ReconcilerWorkers, lg)
	lg.WithField("topic", orders.TopicReconciliationNeeded).Info("reconciler consuming")
	if err := cons.Start(ctx, svc.Handle); err != nil {
		lg.WithError(err).Error("consumer stopped")
	}
	lg.Info("reconciler exiting")
}
