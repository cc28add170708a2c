package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/resilience"
)

// AnalysisCompletedEvent is the payload published after every analysis.
type AnalysisCompletedEvent struct {
	AnalysisID    string    `json:"analysis_id"`
	RequestID     string    `json:"request_id,omitempty"`
	Source        string    `json:"source"`
	FileExtension string    `json:"file_extension,omitempty"`
	ContentLength int       `json:"content_length"`
	Category      string    `json:"category,omitempty"`
	Classifier    string    `json:"classifier,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("email-analyzer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *Queue) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		slog.Warn("nats_flush_on_close", "error", err)
	}
	p.conn.Close()
}

func (p *Queue) PublishAnalysisCompleted(ctx context.Context, record domain.AnalysisRecord) error {
	payload, err := encodeEvent(record)
	if err != nil {
		return err
	}

	call := func(context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

func encodeEvent(record domain.AnalysisRecord) ([]byte, error) {
	payload, err := json.Marshal(AnalysisCompletedEvent{
		AnalysisID:    record.ID,
		RequestID:     record.RequestID,
		Source:        string(record.Source),
		FileExtension: record.FileExtension,
		ContentLength: record.ContentLength,
		Category:      record.Category,
		Classifier:    record.Classifier,
		Error:         record.Error,
		CreatedAt:     record.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis event: %w", err)
	}
	return payload, nil
}

// eventCallback detaches handlers from ctx cancellation so that events delivered while the
// subscription drains are still handled.
func eventCallback(ctx context.Context, handler func(context.Context, domain.AnalysisRecord) error) nats.MsgHandler {
	handlerCtx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		handleEvent(handlerCtx, msg.Subject, msg.Data, handler)
	}
}

func waitDrained(sub *nats.Subscription, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}

func handleEvent(ctx context.Context, subject string, data []byte, handler func(context.Context, domain.AnalysisRecord) error) {
	record, err := decodeEvent(data)
	if err != nil {
		slog.Warn("analysis_event_dropped", "subject", subject, "error", err)
		return
	}
	if err := handler(ctx, record); err != nil {
		slog.Error("analysis_event_handler_failed", "analysis_id", record.ID, "error", err)
	}
}

func decodeEvent(payload []byte) (domain.AnalysisRecord, error) {
	var event AnalysisCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("unmarshal analysis event: %w", err)
	}
	if event.AnalysisID == "" {
		return domain.AnalysisRecord{}, errors.New("analysis event without id")
	}
	return domain.AnalysisRecord{
		ID:            event.AnalysisID,
		RequestID:     event.RequestID,
		Source:        domain.SourceKind(event.Source),
		FileExtension: event.FileExtension,
		ContentLength: event.ContentLength,
		Category:      event.Category,
		Classifier:    event.Classifier,
		Error:         event.Error,
		CreatedAt:     event.CreatedAt,
	}, nil
}

// SubscribeAnalysisCompleted hands every event to handler until ctx is done, then drains
// and waits for the buffered events to be handled. Subscribers in the same queue group share
// the stream.
func (p *Queue) SubscribeAnalysisCompleted(ctx context.Context, group string, handler func(context.Context, domain.AnalysisRecord) error) error {
	sub, err := p.conn.QueueSubscribe(p.subject, group, eventCallback(ctx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if !waitDrained(sub, 10*time.Second) {
		slog.Warn("nats_drain_timeout", "subject", p.subject)
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
