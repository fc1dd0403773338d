package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/irsalhamdi/lms-client/api"
	"github.com/irsalhamdi/lms-client/api/background"
	"github.com/irsalhamdi/lms-client/backend"
	"github.com/irsalhamdi/lms-client/config"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/certificate"
	"github.com/irsalhamdi/lms-client/core/checkout"
	"github.com/irsalhamdi/lms-client/core/classroom"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/note"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/database"
	"github.com/irsalhamdi/lms-client/rate"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	const prefix = "LMS"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if err := setupLogger(logger, cfg.Log); err != nil {
		return err
	}

	logger.Infof("starting lmsd")
	defer logger.Info("shutdown complete")

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	st, closeStorage, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := context.Background()

	be, err := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, logger)
	if err != nil {
		return fmt.Errorf("building backend client: %w", err)
	}

	cartStore, err := cart.Open(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("opening cart: %w", err)
	}
	progressStore, err := progress.Open(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("opening progress: %w", err)
	}
	couponStore, err := coupon.Open(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("opening coupons: %w", err)
	}
	certStore, err := certificate.Open(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("opening certificates: %w", err)
	}
	noteStore, err := note.Open(ctx, st, logger)
	if err != nil {
		return fmt.Errorf("opening notes: %w", err)
	}

	cartRemote := cart.NewRemote(cartStore, be)
	couponRemote := coupon.NewRemote(be, logger)

	bg := background.New(logger)

	co := checkout.New(be, cartRemote, progressStore, logger,
		checkout.WithRedeemer(couponStore),
		checkout.WithAppliedCoupon(couponRemote),
	)

	cls := classroom.New(classroom.Config{
		Progress:     progressStore,
		Certificates: certStore,
		Cart:         cartStore,
		CartSync:     cartRemote,
		Coupons:      couponRemote,
		Reporter:     be,
		Background:   bg,
		Retry:        cfg.Progress,
		Log:          logger,
	})

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Interval, cfg.Rate.Expiry)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go limiter.Run(limiterCtx)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:   cfg.Cors.Origin,
		Log:          logger,
		Session:      sessionManager,
		Limiter:      limiter,
		Backend:      be,
		Cart:         cartRemote,
		Progress:     progressStore,
		Coupons:      couponStore,
		CouponRemote: couponRemote,
		Certificates: certStore,
		Notes:        noteStore,
		Checkout:     co,
		Classroom:    cls,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all progress reports: %w", err)
		}
	}
	return nil
}

func setupLogger(logger *logrus.Logger, cfg config.Log) error {
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return nil
}

func openStorage(cfg config.Config, logger logrus.FieldLogger) (storage.Storage, func(), error) {
	switch cfg.Storage.Kind {
	case "memory":
		return storage.NewMemory(), func() {}, nil

	case "file":
		st, err := storage.NewFile(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening state dir: %w", err)
		}
		return st, func() {}, nil

	case "postgres":
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		if err := waitForDB(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrating db: %w", err)
		}
		logger.WithField("host", cfg.DB.Host).Info("state stored in postgres")
		return storage.NewSQL(db), func() { db.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
}

func waitForDB(db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	op := func() error { return database.StatusCheck(ctx, db) }
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return fmt.Errorf("waiting for db: %w", err)
	}
	return nil
}
