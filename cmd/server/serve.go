package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"rental-service/internal/config"
	"rental-service/internal/handlers"
	"rental-service/internal/services"
	"rental-service/internal/worker"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the daily overdue sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.RentalServiceConfig) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(a.services, a.metrics, a.db)

	var wg sync.WaitGroup
	if cfg.SweepCfg.Enabled {
		pool := worker.NewWorkingPool("billing", cfg.SweepCfg.Workers, 8)
		wg.Add(1)
		go pool.Start(ctx, &wg)

		scheduler := worker.NewJobScheduler("overdue-sweep", cfg.SweepCfg.Interval, pool)
		scheduler.FirstRun = worker.UntilNextMidnight(time.Now())
		scheduler.AddJob(worker.NamedJob{
			Name: "overdue-sweep",
			Run: func(ctx context.Context) error {
				_, err := a.services.Sweep.Run(ctx)
				if errors.Is(err, services.ErrSweepLocked) {
					return nil
				}
				return err
			},
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("rental service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	stop()
	wg.Wait()
	return err
}
