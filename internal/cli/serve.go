// serve.go implements the "birthdaybot serve" command which runs the chat
// gateway and the daily reminder scheduler.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/birthdaybot/internal/chatapi"
	"github.com/ent0n29/birthdaybot/internal/config"
	"github.com/ent0n29/birthdaybot/internal/conversation"
	"github.com/ent0n29/birthdaybot/internal/observability"
	"github.com/ent0n29/birthdaybot/internal/reminder"
	"github.com/ent0n29/birthdaybot/internal/report"
	"github.com/ent0n29/birthdaybot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateway and reminder scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer logger.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	birthdayStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store init failed: %w", err)
	}
	defer birthdayStore.Close()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	sessions := conversation.NewManager(cfg.SessionTimeout)
	sessions.SetExpireHook(func(s *conversation.Session) {
		logger.Info("abandoned flow expired",
			zap.String("user_id", s.UserID),
			zap.String("state", string(s.State)))
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	engine := conversation.NewEngine(sessions, birthdayStore, logger, metrics, now)
	hub := chatapi.NewHub(logger, metrics)
	reporter := report.NewReporter(engine, hub, cfg.AdminUserID, logger, metrics)
	scheduler := reminder.NewScheduler(birthdayStore, hub, logger, metrics, loc, cfg.ReminderHour, cfg.ReminderMinute)

	api := chatapi.New(cfg, reporter, hub, metrics, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 30*time.Second)
	scheduler.Start(runCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen error: %w", err)
	case <-sigCh:
		logger.Info("shutdown signal received")
	}

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
	return nil
}
