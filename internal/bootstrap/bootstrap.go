package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	httpadapter "github.com/kirillkom/email-analyzer/internal/adapters/http"
	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/core/ports"
	"github.com/kirillkom/email-analyzer/internal/core/usecase"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/classifier/keyword"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/extractor"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/extractor/htmltext"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/llm/huggingface"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Analyzer ports.EmailAnalyzer

	closeFns []func()
}

// New wires the analyzer. Postgres, NATS and the Hugging Face classifier are optional and
// only started when configured. When both Postgres and NATS are set the API only publishes;
// persisting is left to the audit worker.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if _, err := httpadapter.LoadOpenAPI(ctx); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	var publisher ports.EventPublisher
	var recorder ports.AnalysisRecorder
	switch {
	case cfg.NATSURL != "":
		queue, err := openQueue(cfg)
		if err != nil {
			return nil, err
		}
		app.onClose(queue.Close)
		publisher = queue
	case cfg.PostgresDSN != "":
		repo, err := app.openRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		recorder = repo
	}

	cls := cfg.Classification
	fallback := keyword.New(cls.Keywords, cls.ProductiveLabel, cls.UnproductiveLabel)

	var primary ports.EmailClassifier
	if cfg.HFToken != "" {
		policy := resilience.DefaultConfig()
		policy.RateLimitPerSecond = cfg.HFRateLimitRPS
		client := huggingface.New(cfg.HFURL, cfg.HFModel, cfg.HFToken, huggingface.Options{
			Timeout:  cfg.HFTimeout,
			Executor: resilience.NewExecutor(policy),
		})
		primary = huggingface.NewClassifier(client, cls.Labels())
		slog.Info("classifier_configured", "primary", huggingface.Name, "model", cfg.HFModel, "fallback", keyword.Name)
	} else {
		slog.Info("classifier_configured", "primary", keyword.Name)
	}

	app.Analyzer = usecase.NewAnalyzeEmailUseCase(
		NewExtractor(),
		primary,
		fallback,
		recorder,
		publisher,
		usecase.AnalyzeOptions{
			MaxUploadBytes:  cfg.MaxUploadBytes,
			Replies:         cls.Replies,
			DefaultCategory: cls.UnproductiveLabel,
		},
	)
	return app, nil
}

// AuditSink consumes analysis events and persists them.
type AuditSink struct {
	Queue    *nats.Queue
	Recorder ports.AnalysisRecorder

	app *App
}

func NewAuditSink(ctx context.Context, cfg config.Config) (*AuditSink, error) {
	if cfg.NATSURL == "" || cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("audit sink needs NATS_URL and POSTGRES_DSN")
	}
	app := &App{Config: cfg}
	repo, err := app.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queue, err := openQueue(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.onClose(queue.Close)
	return &AuditSink{Queue: queue, Recorder: repo, app: app}, nil
}

func (s *AuditSink) Close() {
	s.app.Close()
}

func (a *App) openRepository(ctx context.Context, cfg config.Config) (*postgres.AnalysisRepository, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { _ = db.Close() })

	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func openQueue(cfg config.Config) (*nats.Queue, error) {
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
	}
	return queue, nil
}

// NewExtractor routes uploads to a text extractor by file extension.
func NewExtractor() *extractor.Router {
	return extractor.NewRouter().
		Register(plaintext.NewExtractor(), "txt").
		Register(pdf.NewExtractor(), "pdf").
		Register(spreadsheet.NewExtractor(), "xlsx").
		Register(htmltext.NewExtractor(), "html", "htm")
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
