package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/email-analyzer/internal/client/analyzer"
	"github.com/kirillkom/email-analyzer/internal/client/form"
	"github.com/kirillkom/email-analyzer/internal/client/terminal"
	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/observability/logging"
)

type submitEvent struct{}

func (submitEvent) PreventDefault() {}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	flags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags.SetOutput(stderr)
	serverURL := flags.String("server", cfg.AnalyzerURL, "analyzer API base URL")
	text := flags.String("text", "", "email text to analyze")
	file := flags.String("file", "", "path of a .txt, .pdf, .xlsx or .html file to analyze")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := terminal.NewView(stdout)
	client := analyzer.New(*serverURL, analyzer.WithTimeout(cfg.AnalyzerClientTimeout))
	controller := form.New(view, client, form.WithLogger(logging.New(stderr, "analyze-cli", cfg.LogLevel, true)))

	if err := fill(ctx, view, *text, *file); err != nil {
		if errors.Is(err, terminal.ErrAborted) {
			return 130
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	controller.UpdatePreview()

	if err := controller.Submit(ctx, submitEvent{}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func fill(ctx context.Context, view *terminal.View, text, file string) error {
	if text == "" && file == "" {
		return terminal.Collect(ctx, terminal.NewSurveyDriver(), view)
	}
	view.SetText(text)
	if file != "" {
		return view.SelectFile(file)
	}
	return nil
}
