package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-parts-shop/internal/auth"
	"github.com/ariefcatur/go-parts-shop/internal/cart"
	"github.com/ariefcatur/go-parts-shop/internal/catalog"
	"github.com/ariefcatur/go-parts-shop/internal/config"
	"github.com/ariefcatur/go-parts-shop/internal/httpx"
	kafkax "github.com/ariefcatur/go-parts-shop/internal/kafka"
	"github.com/ariefcatur/go-parts-shop/internal/logging"
	"github.com/ariefcatur/go-parts-shop/internal/memstore"
	"github.com/ariefcatur/go-parts-shop/internal/metrics"
	"github.com/ariefcatur/go-parts-shop/internal/notify"
	"github.com/ariefcatur/go-parts-shop/internal/orders"
	"github.com/ariefcatur/go-parts-shop/internal/postgres"
	"github.com/ariefcatur/go-parts-shop/internal/redisx"
	"github.com/ariefcatur/go-parts-shop/internal/users"
	"github.com/ariefcatur/go-parts-shop/internal/wishlist"
)

type stores struct {
	orderStores orders.Stores
	tx          orders.Transactor
	orderStore  httpx.OrderStore
	catalog     httpx.CatalogStore
	cart        cart.Store
	wishlist    wishlist.Store
	users       users.Store
}

func memoryStores(cfg config.Config, lg *log.Entry) stores {
	if cfg.OrderTxMode == config.TxModeTransaction {
		lg.Warn("memory store has no transactions; orders use compensate mode")
	}
	mem := memstore.New()
	return stores{
		orderStores: mem.OrderStores(),
		orderStore:  mem.Orders(),
		catalog:     mem.Catalog(),
		cart:        mem.Carts(),
		wishlist:    mem.Wishlists(),
		users:       mem.Users(),
	}
}

func postgresStores(cfg config.Config, pool *pgxpool.Pool) stores {
	st := stores{
		orderStores: orders.PgStores(pool),
		orderStore:  &orders.Repo{DB: pool},
		catalog:     &catalog.Repo{DB: pool},
		cart:        &cart.Repo{DB: pool},
		wishlist:    &wishlist.Repo{DB: pool},
		users:       &users.Repo{DB: pool},
	}
	if cfg.OrderTxMode == config.TxModeTransaction {
		st.tx = &orders.PgTransactor{Pool: pool}
	}
	return st
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		st     stores
		checks []func(context.Context) error
	)
	switch cfg.Store {
	case config.StoreMemory:
		st = memoryStores(cfg, lg)
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = postgresStores(cfg, pool)
		checks = append(checks, pool.Ping)
	}

	var idem httpx.IdempotencyGuard
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		idem = &redisx.Idempotency{KV: redisx.Client{RDB: rdb}, Log: lg}
		checks = append(checks, func(ctx context.Context) error { return redisx.Ping(ctx, rdb) })
	} else {
		lg.Warn("REDIS_ADDR empty; Idempotency-Key is ignored")
	}

	var (
		notifier  orders.Notifier = notify.Log{Log: lg}
		producers []*kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		committed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCommitted, 1024, lg)
		reconcile := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicReconciliationNeeded, 256, lg)
		producers = append(producers, committed, reconcile)
		for _, p := range producers {
			p.Start(ctx)
		}
		notifier = &notify.Kafka{Committed: committed, Reconciliation: reconcile, Service: cfg.ServiceName, Log: lg}
	}

	m := metrics.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, lg)
	svc := &orders.Service{
		Stores:  st.orderStores,
		Tx:      st.tx,
		Cart:    st.cart,
		Notify:  notifier,
		Metrics: m,
		Log:     lg,
		Timeout: cfg.StoreTimeout,
	}
	server := &httpx.Server{
		Tokens:     tokens,
		Orders:     svc,
		OrderStore: st.orderStore,
		Catalog:    st.catalog,
		Cart:       st.cart,
		Wishlist:   st.wishlist,
		Accounts:   &users.Service{Store: st.users, Tokens: tokens},
		Idem:       idem,
		Metrics:    m,
		Health: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		Log:     lg,
		Timeout: cfg.StoreTimeout,
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Routes(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.WithFields(log.Fields{"addr": cfg.HTTPAddr, "store": cfg.Store, "tx_mode": cfg.OrderTxMode}).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		for _, p := range producers {
			p.Close()
			p.WaitClosed()
		}
		return err
	})
	return g.Wait()
}
