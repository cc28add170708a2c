package bootstrap

import (
	"context"
	"testing"

	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes: 1 << 20,
		Classification: config.DefaultClassification(),
	}
}

func TestNewWithoutOptionalBackendsUsesKeywordClassifier(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	analysis, err := app.Analyzer.Analyze(context.Background(), domain.Submission{Text: "There is a problem with my order"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Category != "Productive" || analysis.Classifier != "keyword" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
	if analysis.SuggestedReply != config.DefaultClassification().Replies["Productive"] {
		t.Fatalf("unexpected reply %q", analysis.SuggestedReply)
	}
}

func TestNewExtractorRoutesSupportedTypes(t *testing.T) {
	router := NewExtractor()

	text, err := router.Extract(context.Background(), domain.Upload{Filename: "mail.HTM", Content: []byte("<p>Hello <b>team</b></p>")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text == "" {
		t.Fatalf("expected html text to be extracted")
	}

	_, err = router.Extract(context.Background(), domain.Upload{Filename: "mail.docx", Content: []byte("x")})
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestUploadedFileRejectionsReachTheSubmitter(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	_, err = app.Analyzer.Analyze(context.Background(), domain.Submission{
		File: &domain.Upload{Filename: "notes.docx", Content: []byte("x")},
	})
	msg, ok := domain.UserMessage(err)
	if !ok || msg != "unsupported file type: only .txt, .pdf, .xlsx or .html files are accepted." {
		t.Fatalf("unexpected error %v", err)
	}
}
