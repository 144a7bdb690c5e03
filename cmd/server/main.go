package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/plant-classifier/internal/config"
	"github.com/Brownie44l1/plant-classifier/internal/handlers"
	"github.com/Brownie44l1/plant-classifier/internal/logger"
	"github.com/Brownie44l1/plant-classifier/internal/model"
	"github.com/Brownie44l1/plant-classifier/internal/pipeline"
	"github.com/Brownie44l1/plant-classifier/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource so its deferred cleanup happens before main exits.
func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	resample, err := pipeline.ParseInterpolation(cfg.Model.Resample)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	store, err := storage.New(ctx, storage.Config{
		Type:      cfg.Storage.Type,
		Dir:       cfg.Upload.Dir,
		URLPrefix: cfg.Upload.URLPrefix,
		S3: storage.S3Config{
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			UseSSL:    cfg.Storage.S3.UseSSL,
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			PublicURL: cfg.Storage.S3.PublicURL,
		},
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// A model that fails to load leaves the server up; /predict then
	// answers "model unavailable".
	log.WithFields(log.Fields{"backend": cfg.Model.Backend, "path": cfg.Model.Path}).Info("loading model")
	classifier, err := model.Load(ctx, model.Config{
		Backend:      cfg.Model.Backend,
		Path:         cfg.Model.Path,
		MetadataPath: cfg.Model.MetadataPath,
		LibraryPath:  cfg.Model.LibraryPath,
		Classes:      cfg.Model.Classes,
		ImageSize:    cfg.Model.ImageSize,
		Threads:      cfg.Model.Threads,
		Remote: model.RemoteConfig{
			URL:     cfg.Model.Remote.URL,
			Name:    cfg.Model.Remote.Name,
			Timeout: cfg.Model.Remote.Timeout,
		},
	})
	if err != nil {
		log.WithError(err).Error("failed to load model, predictions disabled")
	} else {
		log.WithField("classes", classifier.Classes()).Info("model loaded")
		defer classifier.Close()
	}

	p := pipeline.New(classifier, store,
		pipeline.WithImageSize(cfg.Model.ImageSize),
		pipeline.WithInterpolation(resample),
		pipeline.WithMaxUploadBytes(cfg.Upload.MaxBytes),
	)
	h := handlers.NewHandler(p, cfg.Upload.MaxBytes)

	routerCfg := handlers.RouterConfig{Mode: cfg.Server.Mode}
	if _, ok := store.(*storage.LocalStorage); ok {
		routerCfg.StaticURL = cfg.Upload.URLPrefix
		routerCfg.StaticDir = cfg.Upload.Dir
	}
	router, err := handlers.NewRouter(h, routerCfg)
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return serve(srv, quit)
}

// serve runs srv until it fails or a signal arrives on quit, then shuts it
// down gracefully.
func serve(srv *http.Server, quit <-chan os.Signal) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", srv.Addr)
		log.Info("endpoints: GET / (upload form), POST /predict (classify), GET /health")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
	return nil
}
