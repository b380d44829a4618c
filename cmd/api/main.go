package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/database"
	"github.com/johnjclub/johnjclub/pkg/migrations"
	"github.com/johnjclub/johnjclub/pkg/series"
	"github.com/johnjclub/johnjclub/pkg/server"
	"github.com/johnjclub/johnjclub/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting johnjclub", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if cfg.StorageBackend == config.StorageBackendFilesystem {
		if err := initMediaRoot(cfg.MediaRoot); err != nil {
			log.Err(err).Fatal("media root error")
		}
		log.Info("media root initialized", logger.Data{"path": cfg.MediaRoot})
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	store, err := server.NewStorageBackend(ctx, cfg)
	if err != nil {
		log.Err(err).Fatal("storage error")
	}

	// The fallback series has to exist before any article write can
	// reference it.
	seriesService := series.NewService(db, server.NewPipeline(cfg, store))
	if _, err := seriesService.EnsureDefaultSeries(ctx, cfg.DefaultSeriesName); err != nil {
		log.Err(err).Fatal("default series error")
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		// Extract actual port (useful when ServerPort is 0)
		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initMediaRoot creates the media directory and verifies write
// permissions.
func initMediaRoot(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create media directory: %s", dir)
	}

	testFile := dir + "/.write_test"
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "media directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
