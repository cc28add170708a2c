package ports

import (
	"context"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

// TextExtractor extracts plain text from an uploaded file.
type TextExtractor interface {
	Extract(ctx context.Context, upload domain.Upload) (string, error)
}

// EmailClassifier assigns a category to email content.
type EmailClassifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// AnalysisRecorder persists the audit trail of analyses.
type AnalysisRecorder interface {
	Record(ctx context.Context, record domain.AnalysisRecord) error
}

// EventPublisher announces completed analyses.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, record domain.AnalysisRecord) error
}
