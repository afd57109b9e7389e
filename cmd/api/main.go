package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"places-api/internal/config"
	"places-api/internal/database"
	"places-api/internal/handler"
	"places-api/internal/logger"
	"places-api/internal/pagination"
	"places-api/internal/repository"
	"places-api/internal/router"
	"places-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// @title Places API
// @version 1.0
// @description CRUD for named geographic points and nearest-place lookup.
// @BasePath /
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("cannot set up logger")
	}

	// Initialize layers
	var repo service.PlaceRepository
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		repo = repository.NewMemoryRepository()
	default:
		if cfg.RunMigrations {
			if err := database.Migrate(cfg.DBSource); err != nil {
				log.Fatal().Err(err).Msg("cannot migrate db")
			}
		}

		conn, err := database.NewPool(context.Background(), cfg.DBSource, cfg.DBMaxConns)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to db")
		}
		defer conn.Close()

		repo = repository.NewPostgresRepository(conn)
	}

	placeService := service.NewPlaceService(repo)
	placeHandler := handler.NewPlaceHandler(placeService, pagination.Policy{
		DefaultSize: cfg.PageSize,
		MaxSize:     cfg.MaxPageSize,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router.Setup(placeHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
