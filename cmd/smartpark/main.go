// Package main запускает HTTP-сервер сервиса смартпарк.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/smartpark-system/internal/config"
	"github.com/mmeshcher/smartpark-system/internal/geo"
	"github.com/mmeshcher/smartpark-system/internal/handler"
	"github.com/mmeshcher/smartpark-system/internal/middleware"
	"github.com/mmeshcher/smartpark-system/internal/registry"
	"github.com/mmeshcher/smartpark-system/internal/remote"
	"github.com/mmeshcher/smartpark-system/internal/service"
	"github.com/mmeshcher/smartpark-system/internal/stream"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	reg := registry.New()

	var remoteClient service.Remote
	if cfg.RemoteAddress != "" {
		remoteClient = remote.NewClient(cfg.RemoteAddress)
	}

	geoClient := geo.NewClient(cfg.GeoAddress)

	svc := service.NewService(reg, remoteClient, logger)
	defer svc.Close()

	hub := stream.NewHub(logger)
	defer hub.Close()

	reg.Subscribe(hub.BroadcastZones)
	svc.SubscribeFlow(hub.BroadcastFlow)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, geoClient, logger, authMiddleware, hub)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой синхронизации занятости зон и журнала платежей
	g.Go(func() error {
		svc.StartSync(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting smartpark server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
