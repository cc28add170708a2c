package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/email-analyzer/internal/bootstrap"
	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/observability/logging"
)

// The worker persists the analysis audit trail from analysis.completed events.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("audit-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := bootstrap.NewAuditSink(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer sink.Close()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = sink.Queue.SubscribeAnalysisCompleted(ctx, "audit", func(handlerCtx context.Context, record domain.AnalysisRecord) error {
		recordCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Second)
		defer cancel()
		return sink.Recorder.Record(recordCtx, record)
	})
	if err != nil {
		slog.Error("worker_stopped", "error", err)
		return 1
	}
	return 0
}
