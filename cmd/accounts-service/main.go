package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OnkarJ/youtube-backend/internal/config"
	"github.com/OnkarJ/youtube-backend/internal/media"
	"github.com/OnkarJ/youtube-backend/internal/metrics"
	logpkg "github.com/OnkarJ/youtube-backend/internal/pkg/log"
	"github.com/OnkarJ/youtube-backend/internal/security/password"
	"github.com/OnkarJ/youtube-backend/internal/security/token"
	"github.com/OnkarJ/youtube-backend/internal/service"
	"github.com/OnkarJ/youtube-backend/internal/storage"
	"github.com/OnkarJ/youtube-backend/internal/storage/memory"
	"github.com/OnkarJ/youtube-backend/internal/storage/minio"
	"github.com/OnkarJ/youtube-backend/internal/storage/mongo"
	"github.com/OnkarJ/youtube-backend/internal/storage/postgres"
	"github.com/OnkarJ/youtube-backend/internal/storage/s3"
	acchttp "github.com/OnkarJ/youtube-backend/internal/transport/http"
	"github.com/OnkarJ/youtube-backend/internal/transport/http/handlers"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := logpkg.Setup(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting accounts-service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("media", cfg.Media.Backend),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	accounts, err := openAccountStorage(dbCtx, cfg)
	dbCancel()
	if err != nil {
		return err
	}
	log.Info("storage_connected", slog.String("driver", cfg.Storage.Driver))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := accounts.Close(closeCtx); err != nil {
			log.Warn("storage_close_failed", slog.String("err", err.Error()))
		}
	}()

	s3Ctx, s3Cancel := context.WithTimeout(ctx, 10*time.Second)
	objects, err := openObjectStorage(s3Ctx, cfg)
	s3Cancel()
	if err != nil {
		return err
	}
	log.Info("object_storage_connected", slog.String("backend", cfg.Media.Backend), slog.String("bucket", cfg.S3.Bucket))

	stager, err := media.NewStager(cfg.Media.TempDir)
	if err != nil {
		return err
	}

	issuer, err := token.New(token.Options{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(accounts, password.New(cfg.Auth.BcryptCost), issuer,
		media.NewPublisher(objects, cfg.Media.PublishTimeout, m))
	svc.SetMetrics(m)
	log.Info("service_initialized")

	go runStagingJanitor(ctx, stager, cfg.Media.StagingMaxAge, log)

	apiHandler := acchttp.NewRouter(svc, stager, acchttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: acchttp.DefaultBasePath,
		Metrics:  m,
		Handlers: handlers.Options{
			JSONBodyLimit:  cfg.HTTP.JSONBodyLimit,
			MaxUploadBytes: cfg.Media.MaxUploadBytes,
			Cookie:         cfg.Cookie,
		},
	})

	var ready int32 // 0 - not ready; 1 - ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", httpAddr, err)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// openAccountStorage подключает хранилище учётных записей по storage.driver.
func openAccountStorage(ctx context.Context, cfg *config.Config) (storage.AccountStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		st, err := mongo.New(ctx, cfg.Mongo.URL)
		if err != nil {
			return nil, fmt.Errorf("mongo_connect_failed: %w", err)
		}
		return st, nil
	case config.StoragePostgres:
		st, err := postgres.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres_connect_failed: %w", err)
		}
		return st, nil
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// openObjectStorage подключает объектное хранилище по media.backend.
func openObjectStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Media.Backend {
	case config.MediaMinio:
		st, err := minio.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("minio_connect_failed: %w", err)
		}
		return st, nil
	case config.MediaS3:
		st, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3_connect_failed: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
}

// runStagingJanitor удаляет забытые временные файлы при старте и далее
// с периодом maxAge/2.
func runStagingJanitor(ctx context.Context, stager *media.Stager, maxAge time.Duration, log *slog.Logger) {
	if maxAge <= 0 {
		return
	}

	sweep := func() {
		n, err := stager.Sweep(ctx, maxAge)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("staging_sweep_failed", slog.String("err", err.Error()))
			return
		}
		if n > 0 {
			log.Info("staging_swept", slog.Int("removed", n))
		}
	}

	sweep()

	ticker := time.NewTicker(max(maxAge/2, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
