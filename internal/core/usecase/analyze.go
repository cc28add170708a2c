package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/core/ports"
)

const (
	msgNoInput     = "no text or file was submitted."
	msgEmpty       = "the submitted content is empty."
	msgUnsupported = "unsupported file type: only .txt, .pdf, .xlsx or .html files are accepted."
)

type AnalyzeOptions struct {
	MaxUploadBytes  int64
	Replies         map[string]string
	DefaultCategory string
}

type AnalyzeEmailUseCase struct {
	extractor ports.TextExtractor
	primary   ports.EmailClassifier
	fallback  ports.EmailClassifier
	recorder  ports.AnalysisRecorder
	publisher ports.EventPublisher
	opts      AnalyzeOptions
	now       func() time.Time
}

// NewAnalyzeEmailUseCase builds the analyzer. primary, recorder and publisher are optional;
// fallback must never be nil.
func NewAnalyzeEmailUseCase(
	extractor ports.TextExtractor,
	primary ports.EmailClassifier,
	fallback ports.EmailClassifier,
	recorder ports.AnalysisRecorder,
	publisher ports.EventPublisher,
	opts AnalyzeOptions,
) *AnalyzeEmailUseCase {
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = domain.CategoryUnproductive
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	return &AnalyzeEmailUseCase{
		extractor: extractor,
		primary:   primary,
		fallback:  fallback,
		recorder:  recorder,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AnalyzeEmailUseCase) Analyze(ctx context.Context, submission domain.Submission) (*domain.Analysis, error) {
	record := domain.AnalysisRecord{
		ID:        uuid.NewString(),
		RequestID: submission.RequestID,
		CreatedAt: uc.now(),
	}

	analysis, err := uc.run(ctx, submission, &record)
	if err != nil {
		record.Error = err.Error()
	}
	uc.audit(ctx, record)

	return analysis, err
}

func (uc *AnalyzeEmailUseCase) run(ctx context.Context, submission domain.Submission, record *domain.AnalysisRecord) (*domain.Analysis, error) {
	content, err := uc.content(ctx, submission, record)
	if err != nil {
		return nil, err
	}
	record.ContentLength = len(content)
	if content == "" {
		return nil, domain.NewUserError(domain.ErrEmptyContent, msgEmpty)
	}

	classification, err := uc.classify(ctx, content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(classification.Category) == "" {
		classification.Category = uc.opts.DefaultCategory
	}
	record.Category = classification.Category
	record.Classifier = classification.Classifier

	return &domain.Analysis{
		ID:             record.ID,
		Category:       classification.Category,
		SuggestedReply: uc.replyFor(classification.Category),
		Confidence:     classification.Confidence,
		Classifier:     classification.Classifier,
		Source:         record.Source,
		CreatedAt:      record.CreatedAt,
	}, nil
}

// content resolves the text to classify. An uploaded file wins over pasted text.
func (uc *AnalyzeEmailUseCase) content(ctx context.Context, submission domain.Submission, record *domain.AnalysisRecord) (string, error) {
	if submission.File != nil {
		upload := *submission.File
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), ".")
		record.Source = domain.SourceFile
		record.FileExtension = ext

		if int64(len(upload.Content)) > uc.opts.MaxUploadBytes {
			return "", domain.NewUserError(domain.ErrTooLarge, fmt.Sprintf("file too large, max %s.", domain.FormatBytes(uc.opts.MaxUploadBytes)))
		}

		slog.InfoContext(ctx, "upload_received",
			"request_id", submission.RequestID,
			"filename", upload.Filename,
			"extension", ext,
			"bytes", len(upload.Content),
		)

		text, err := uc.extractor.Extract(ctx, upload)
		if err != nil {
			if domain.IsKind(err, domain.ErrUnsupportedFormat) {
				return "", domain.NewUserError(domain.ErrUnsupportedFormat, msgUnsupported)
			}
			slog.WarnContext(ctx, "extract_failed", "request_id", submission.RequestID, "filename", upload.Filename, "error", err)
			return "", domain.NewUserError(domain.ErrInvalidInput, fmt.Sprintf("could not read the uploaded %s file.", strings.ToUpper(ext)))
		}
		return strings.TrimSpace(text), nil
	}

	if submission.Text != "" {
		record.Source = domain.SourceText
		return strings.TrimSpace(submission.Text), nil
	}

	return "", domain.NewUserError(domain.ErrInvalidInput, msgNoInput)
}

func (uc *AnalyzeEmailUseCase) classify(ctx context.Context, text string) (domain.Classification, error) {
	if uc.primary != nil {
		classification, err := uc.primary.Classify(ctx, text)
		if err == nil {
			return classification, nil
		}
		if errors.Is(err, context.Canceled) {
			return domain.Classification{}, err
		}
		slog.ErrorContext(ctx, "primary_classifier_failed", "error", err)
	}

	classification, err := uc.fallback.Classify(ctx, text)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify email: %w", err)
	}
	return classification, nil
}

func (uc *AnalyzeEmailUseCase) replyFor(category string) string {
	if reply, ok := uc.opts.Replies[category]; ok {
		return reply
	}
	return uc.opts.Replies[uc.opts.DefaultCategory]
}

func (uc *AnalyzeEmailUseCase) audit(ctx context.Context, record domain.AnalysisRecord) {
	if uc.recorder != nil {
		if err := uc.recorder.Record(ctx, record); err != nil {
			slog.WarnContext(ctx, "analysis_record_failed", "analysis_id", record.ID, "error", err)
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishAnalysisCompleted(ctx, record); err != nil {
			slog.WarnContext(ctx, "analysis_publish_failed", "analysis_id", record.ID, "error", err)
		}
	}
}
