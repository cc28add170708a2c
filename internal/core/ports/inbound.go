package ports

import (
	"context"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

// EmailAnalyzer is the inbound contract for classifying a submitted email.
type EmailAnalyzer interface {
	Analyze(ctx context.Context, submission domain.Submission) (*domain.Analysis, error)
}
