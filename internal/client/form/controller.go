// Package form drives the analyze form: file preview, submission, busy state and reset.
//
// The page itself is abstracted as a View so the controller can be bound to a terminal,
// a test double or any other front end.
package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/email-analyzer/internal/client/analyzer"
)

const (
	labelIdle = "Analyze"
	labelBusy = "Analyzing..."

	pendingCategory = "…"
	pendingReply    = "Analyzing..."

	errorCategory     = "Error"
	fallbackCategory  = "Not defined"
	fallbackReply     = "No suggested reply"
	connectionFailure = "could not connect to the server"
)

// ErrBusy is returned by Submit while a previous submission is still in flight.
var ErrBusy = errors.New("a submission is already in flight")

type State int

const (
	Idle State = iota
	Busy
)

func (s State) String() string {
	if s == Busy {
		return "busy"
	}
	return "idle"
}

// ControlState is how the submit control is rendered for a State.
type ControlState struct {
	Disabled        bool
	AriaBusy        bool
	Dimmed          bool
	WaitCursor      bool
	IdleIconVisible bool
	BusyIconVisible bool
	Label           string
}

func (s State) Control() ControlState {
	busy := s == Busy
	label := labelIdle
	if busy {
		label = labelBusy
	}
	return ControlState{
		Disabled:        busy,
		AriaBusy:        busy,
		Dimmed:          busy,
		WaitCursor:      busy,
		IdleIconVisible: !busy,
		BusyIconVisible: busy,
		Label:           label,
	}
}

// SelectedFile is the file currently chosen in the file input.
type SelectedFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// View is the page the controller reads from and renders into.
type View interface {
	Text() string
	ClearText()
	// SelectedFile returns nil when no file is chosen.
	SelectedFile() *SelectedFile
	ClearFile()

	ShowFilePreview()
	HideFilePreview()
	SetFileName(name string)

	ShowResult()
	SetCategory(category string)
	SetReply(reply string)

	RenderControl(ControlState)
}

// Event is the submit event; PreventDefault stops the native form submission.
type Event interface {
	PreventDefault()
}

type Transport interface {
	Analyze(ctx context.Context, submission analyzer.Submission) (analyzer.Response, error)
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type Controller struct {
	view      View
	transport Transport
	logger    *slog.Logger

	inFlight atomic.Bool

	mu    sync.Mutex
	state State
}

// New renders the idle control state on the view.
func New(view View, transport Transport, opts ...Option) *Controller {
	c := &Controller{
		view:      view,
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	view.RenderControl(Idle.Control())
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdatePreview reflects the file input into the preview panel.
func (c *Controller) UpdatePreview() {
	if file := c.view.SelectedFile(); file != nil {
		c.view.SetFileName(file.Name)
		c.view.ShowFilePreview()
		return
	}
	c.view.HideFilePreview()
	c.view.SetFileName("")
}

// Submit sends the form once and renders the outcome. The form is reset after every
// outcome, including errors. While a submission is in flight further calls return ErrBusy
// without touching the view. View callbacks run without any controller lock held, so they
// may call State.
func (c *Controller) Submit(ctx context.Context, event Event) error {
	if event != nil {
		event.PreventDefault()
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.inFlight.Store(false)

	c.view.ShowResult()
	c.view.SetCategory(pendingCategory)
	c.view.SetReply(pendingReply)

	submission := c.payload()
	c.setState(Busy)

	resp, err := c.transport.Analyze(ctx, submission)
	if err != nil {
		c.logger.ErrorContext(ctx, "analyze_request_failed", "error", err)
		c.render(errorCategory, connectionFailure)
	} else {
		c.renderResponse(resp)
	}

	c.setState(Idle)
	c.reset()
	return nil
}

func (c *Controller) payload() analyzer.Submission {
	var submission analyzer.Submission
	if text := strings.TrimSpace(c.view.Text()); text != "" {
		submission.Text = text
	}
	if file := c.view.SelectedFile(); file != nil {
		submission.File = &analyzer.File{
			Name:        file.Name,
			ContentType: file.ContentType,
			Content:     file.Content,
		}
	}
	return submission
}

func (c *Controller) renderResponse(resp analyzer.Response) {
	if resp.Error != "" {
		c.render(errorCategory, resp.Error)
		return
	}

	category := resp.Category
	if category == "" {
		category = fallbackCategory
	}
	reply := resp.SuggestedReply
	if reply == "" {
		reply = fallbackReply
	}
	c.render(category, reply)
}

func (c *Controller) render(category, reply string) {
	c.view.SetCategory(category)
	c.view.SetReply(reply)
}

func (c *Controller) reset() {
	c.view.ClearText()
	c.view.ClearFile()
	c.view.HideFilePreview()
	c.view.SetFileName("")
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.view.RenderControl(state.Control())
}
