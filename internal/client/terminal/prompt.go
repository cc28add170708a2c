package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the user aborted input (e.g. Ctrl+C).
var ErrAborted = errors.New("terminal: aborted")

const (
	choiceText = "Paste email text"
	choiceFile = "Attach a file (.txt, .pdf, .xlsx, .html)"
)

// PromptDriver abstracts survey so the input flow can be tested without a terminal.
type PromptDriver interface {
	Select(ctx context.Context, message string, options []string) (int, error)
	TextArea(ctx context.Context, message string) (string, error)
	Input(ctx context.Context, message string, validate func(string) error) (string, error)
}

type surveyDriver struct{}

func NewSurveyDriver() PromptDriver {
	return surveyDriver{}
}

func (surveyDriver) Select(ctx context.Context, message string, options []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out int
	prompt := &survey.Select{Message: message, Options: options}
	if err := survey.AskOne(prompt, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	return out, nil
}

func (surveyDriver) TextArea(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	if err := survey.AskOne(&survey.Multiline{Message: message}, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyDriver) Input(ctx context.Context, message string, validate func(string) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(&survey.Input{Message: message}, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Collect asks for either pasted text or a file path and fills the view.
func Collect(ctx context.Context, driver PromptDriver, view *View) error {
	choice, err := driver.Select(ctx, "What do you want to analyze?", []string{choiceText, choiceFile})
	if err != nil {
		return err
	}

	switch choice {
	case 0:
		text, err := driver.TextArea(ctx, "Email text")
		if err != nil {
			return err
		}
		view.SetText(text)
		return nil
	case 1:
		path, err := driver.Input(ctx, "Path to the file", fileExists)
		if err != nil {
			return err
		}
		return view.SelectFile(strings.TrimSpace(path))
	default:
		return fmt.Errorf("unknown choice %d", choice)
	}
}

func fileExists(path string) error {
	info, err := os.Stat(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("cannot open %q", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", path)
	}
	return nil
}
