package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/email-analyzer/internal/client/analyzer"
	"github.com/kirillkom/email-analyzer/internal/client/form"
)

type driverFake struct {
	choice   int
	text     string
	path     string
	err      error
	validate func(string) error
}

func (d *driverFake) Select(context.Context, string, []string) (int, error) { return d.choice, d.err }
func (d *driverFake) TextArea(context.Context, string) (string, error)      { return d.text, nil }
func (d *driverFake) Input(_ context.Context, _ string, validate func(string) error) (string, error) {
	d.validate = validate
	return d.path, nil
}

type transportFake struct {
	resp     analyzer.Response
	received analyzer.Submission
}

func (f *transportFake) Analyze(_ context.Context, submission analyzer.Submission) (analyzer.Response, error) {
	f.received = submission
	return f.resp, nil
}

func TestCollectText(t *testing.T) {
	view := NewView(&bytes.Buffer{})
	if err := Collect(context.Background(), &driverFake{choice: 0, text: "Refund request"}, view); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if view.Text() != "Refund request" || view.SelectedFile() != nil {
		t.Fatalf("unexpected view state text=%q file=%v", view.Text(), view.SelectedFile())
	}
}

func TestCollectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	view := NewView(&bytes.Buffer{})
	driver := &driverFake{choice: 1, path: path}
	if err := Collect(context.Background(), driver, view); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	file := view.SelectedFile()
	if file == nil || file.Name != "mail.txt" || string(file.Content) != "hello" {
		t.Fatalf("unexpected file %+v", file)
	}
	if !strings.HasPrefix(file.ContentType, "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", file.ContentType)
	}
	if driver.validate == nil || driver.validate(filepath.Dir(path)) == nil {
		t.Fatalf("expected directories to be rejected by the validator")
	}
}

func TestCollectPropagatesAbort(t *testing.T) {
	err := Collect(context.Background(), &driverFake{err: ErrAborted}, NewView(&bytes.Buffer{}))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestViewDrivenByController(t *testing.T) {
	var out bytes.Buffer
	view := NewView(&out)
	transport := &transportFake{resp: analyzer.Response{Category: "Billing", SuggestedReply: "We will process your refund."}}
	c := form.New(view, transport)

	view.SetText("  Refund request ")
	if err := c.Submit(context.Background(), nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	category, reply := view.Result()
	if category != "Billing" || reply != "We will process your refund." {
		t.Fatalf("unexpected result %q / %q", category, reply)
	}
	if transport.received.Text != "Refund request" {
		t.Fatalf("unexpected payload %+v", transport.received)
	}
	if view.Text() != "" {
		t.Fatalf("expected text to be cleared")
	}
	for _, want := range []string{"Analyzing...", "Category: Billing", "Suggested reply: We will process your refund."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}
