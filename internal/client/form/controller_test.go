package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/email-analyzer/internal/client/analyzer"
)

type viewFake struct {
	mu sync.Mutex

	text           string
	file           *SelectedFile
	previewVisible bool
	fileName       string
	resultVisible  bool
	category       string
	reply          string
	control        ControlState
	controls       []ControlState
}

func (v *viewFake) Text() string                { v.mu.Lock(); defer v.mu.Unlock(); return v.text }
func (v *viewFake) ClearText()                  { v.mu.Lock(); defer v.mu.Unlock(); v.text = "" }
func (v *viewFake) SelectedFile() *SelectedFile { v.mu.Lock(); defer v.mu.Unlock(); return v.file }
func (v *viewFake) ClearFile()                  { v.mu.Lock(); defer v.mu.Unlock(); v.file = nil }
func (v *viewFake) ShowFilePreview()            { v.mu.Lock(); defer v.mu.Unlock(); v.previewVisible = true }
func (v *viewFake) HideFilePreview()            { v.mu.Lock(); defer v.mu.Unlock(); v.previewVisible = false }
func (v *viewFake) SetFileName(name string)     { v.mu.Lock(); defer v.mu.Unlock(); v.fileName = name }
func (v *viewFake) ShowResult()                 { v.mu.Lock(); defer v.mu.Unlock(); v.resultVisible = true }
func (v *viewFake) SetCategory(category string) { v.mu.Lock(); defer v.mu.Unlock(); v.category = category }
func (v *viewFake) SetReply(reply string)       { v.mu.Lock(); defer v.mu.Unlock(); v.reply = reply }

func (v *viewFake) RenderControl(state ControlState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.control = state
	v.controls = append(v.controls, state)
}

func (v *viewFake) snapshot() (category, reply string, control ControlState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.category, v.reply, v.control
}

type eventFake struct {
	prevented int
}

func (e *eventFake) PreventDefault() { e.prevented++ }

type transportFake struct {
	resp     analyzer.Response
	err      error
	received []analyzer.Submission
	// during runs inside Analyze, before it returns.
	during func()
}

func (f *transportFake) Analyze(_ context.Context, submission analyzer.Submission) (analyzer.Response, error) {
	f.received = append(f.received, submission)
	if f.during != nil {
		f.during()
	}
	return f.resp, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func assertReset(t *testing.T, view *viewFake) {
	t.Helper()
	if view.text != "" || view.file != nil || view.previewVisible || view.fileName != "" {
		t.Fatalf("form not reset: text=%q file=%v preview=%v name=%q", view.text, view.file, view.previewVisible, view.fileName)
	}
}

func TestNewRendersIdleControl(t *testing.T) {
	view := &viewFake{}
	c := New(view, &transportFake{}, WithLogger(discardLogger()))

	if c.State() != Idle {
		t.Fatalf("expected idle, got %s", c.State())
	}
	want := ControlState{IdleIconVisible: true, Label: "Analyze"}
	if diff := cmp.Diff(want, view.control); diff != "" {
		t.Fatalf("control mismatch (-want +got):\n%s", diff)
	}
}

func TestBusyControlState(t *testing.T) {
	want := ControlState{
		Disabled:        true,
		AriaBusy:        true,
		Dimmed:          true,
		WaitCursor:      true,
		BusyIconVisible: true,
		Label:           "Analyzing...",
	}
	if diff := cmp.Diff(want, Busy.Control()); diff != "" {
		t.Fatalf("control mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdatePreview(t *testing.T) {
	view := &viewFake{file: &SelectedFile{Name: "mail.pdf"}}
	c := New(view, &transportFake{}, WithLogger(discardLogger()))

	c.UpdatePreview()
	if !view.previewVisible || view.fileName != "mail.pdf" {
		t.Fatalf("expected preview with file name, got visible=%v name=%q", view.previewVisible, view.fileName)
	}

	view.file = nil
	c.UpdatePreview()
	if view.previewVisible || view.fileName != "" {
		t.Fatalf("expected hidden preview, got visible=%v name=%q", view.previewVisible, view.fileName)
	}
}

func TestSubmitResetsAfterEveryOutcome(t *testing.T) {
	cases := []struct {
		name      string
		transport *transportFake
	}{
		{name: "success", transport: &transportFake{resp: analyzer.Response{Category: "Productive", SuggestedReply: "ok"}}},
		{name: "application error", transport: &transportFake{resp: analyzer.Response{Error: "file too large, max 5 MB."}}},
		{name: "transport error", transport: &transportFake{err: errors.New("connection refused")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := &viewFake{text: "hello", file: &SelectedFile{Name: "a.txt", Content: []byte("x")}}
			c := New(view, tc.transport, WithLogger(discardLogger()))
			c.UpdatePreview()

			if err := c.Submit(context.Background(), &eventFake{}); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			assertReset(t, view)
			if c.State() != Idle || view.control.Disabled {
				t.Fatalf("expected idle enabled control after submit")
			}
		})
	}
}

func TestControlDisabledOnlyWhileInFlight(t *testing.T) {
	view := &viewFake{text: "hello"}
	transport := &transportFake{resp: analyzer.Response{Category: "Productive", SuggestedReply: "ok"}}
	c := New(view, transport, WithLogger(discardLogger()))

	if view.control.Disabled {
		t.Fatalf("control must be enabled before submission")
	}

	var during ControlState
	var duringCategory, duringReply string
	transport.during = func() {
		duringCategory, duringReply, during = view.snapshot()
	}

	if err := c.Submit(context.Background(), &eventFake{}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if diff := cmp.Diff(Busy.Control(), during); diff != "" {
		t.Fatalf("control during request mismatch (-want +got):\n%s", diff)
	}
	if duringCategory != "…" || duringReply != "Analyzing..." {
		t.Fatalf("expected pending placeholders during request, got %q / %q", duringCategory, duringReply)
	}
	if view.control.Disabled {
		t.Fatalf("control must be enabled after the response is rendered")
	}

	want := []ControlState{Idle.Control(), Busy.Control(), Idle.Control()}
	if diff := cmp.Diff(want, view.controls); diff != "" {
		t.Fatalf("control transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyResponseRendersFallbacks(t *testing.T) {
	view := &viewFake{text: "hello"}
	c := New(view, &transportFake{resp: analyzer.Response{}}, WithLogger(discardLogger()))

	if err := c.Submit(context.Background(), &eventFake{}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.category != "Not defined" || view.reply != "No suggested reply" {
		t.Fatalf("expected fallbacks, got %q / %q", view.category, view.reply)
	}
}

func TestErrorTakesPrecedenceOverCategory(t *testing.T) {
	view := &viewFake{text: "hello"}
	resp := analyzer.Response{Category: "Productive", SuggestedReply: "ok", Error: "unsupported file type"}
	c := New(view, &transportFake{resp: resp}, WithLogger(discardLogger()))

	if err := c.Submit(context.Background(), &eventFake{}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.category != "Error" || view.reply != "unsupported file type" {
		t.Fatalf("expected error rendering, got %q / %q", view.category, view.reply)
	}
}

func TestPayloadConstruction(t *testing.T) {
	file := &SelectedFile{Name: "mail.txt", ContentType: "text/plain", Content: []byte("body")}
	wantFile := &analyzer.File{Name: "mail.txt", ContentType: "text/plain", Content: []byte("body")}

	cases := []struct {
		name string
		text string
		file *SelectedFile
		want analyzer.Submission
	}{
		{name: "text only", text: "  refund please \n", want: analyzer.Submission{Text: "refund please"}},
		{name: "whitespace text is dropped", text: "   ", want: analyzer.Submission{}},
		{name: "file only", file: file, want: analyzer.Submission{File: wantFile}},
		{name: "both", text: "see attached", file: file, want: analyzer.Submission{Text: "see attached", File: wantFile}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := &viewFake{text: tc.text, file: tc.file}
			transport := &transportFake{resp: analyzer.Response{Category: "Productive"}}
			c := New(view, transport, WithLogger(discardLogger()))

			if err := c.Submit(context.Background(), &eventFake{}); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if len(transport.received) != 1 {
				t.Fatalf("expected exactly one request, got %d", len(transport.received))
			}
			if diff := cmp.Diff(tc.want, transport.received[0]); diff != "" {
				t.Fatalf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitPreventsDefault(t *testing.T) {
	event := &eventFake{}
	c := New(&viewFake{text: "x"}, &transportFake{}, WithLogger(discardLogger()))

	if err := c.Submit(context.Background(), event); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if event.prevented != 1 {
		t.Fatalf("expected PreventDefault once, got %d", event.prevented)
	}
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	view := &viewFake{text: "first"}
	entered := make(chan struct{})
	release := make(chan struct{})
	transport := &transportFake{resp: analyzer.Response{Category: "Productive", SuggestedReply: "ok"}}
	transport.during = func() {
		close(entered)
		<-release
	}
	c := New(view, transport, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), &eventFake{}) }()
	<-entered

	if c.State() != Busy {
		t.Fatalf("expected busy while request is in flight")
	}
	if err := c.Submit(context.Background(), &eventFake{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if len(transport.received) != 1 {
		t.Fatalf("expected one request, got %d", len(transport.received))
	}
	if view.category != "Productive" {
		t.Fatalf("rejected submission must not touch the view, got category %q", view.category)
	}
}

func TestScenarioBillingSuccess(t *testing.T) {
	view := &viewFake{}
	transport := &transportFake{resp: analyzer.Response{Category: "Billing", SuggestedReply: "We will process your refund."}}
	c := New(view, transport, WithLogger(discardLogger()))

	view.text = "Refund request"
	var busyDuringCall bool
	transport.during = func() { busyDuringCall = c.State() == Busy }

	if err := c.Submit(context.Background(), &eventFake{}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !busyDuringCall {
		t.Fatalf("expected busy state before the request started")
	}
	if !view.resultVisible || view.category != "Billing" || view.reply != "We will process your refund." {
		t.Fatalf("unexpected rendering: visible=%v %q / %q", view.resultVisible, view.category, view.reply)
	}
	if transport.received[0].Text != "Refund request" {
		t.Fatalf("unexpected payload %+v", transport.received[0])
	}
	assertReset(t, view)
	if c.State() != Idle {
		t.Fatalf("expected idle after submit")
	}
}

func TestScenarioNetworkFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	view := &viewFake{}
	c := New(view, &transportFake{err: errors.New("dial tcp: connection refused")}, WithLogger(logger))

	view.file = &SelectedFile{Name: "mail.pdf", Content: []byte("%PDF")}
	c.UpdatePreview()

	if err := c.Submit(context.Background(), &eventFake{}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.category != "Error" || view.reply != "could not connect to the server" {
		t.Fatalf("unexpected rendering %q / %q", view.category, view.reply)
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Fatalf("expected transport failure to be logged, got %q", logs.String())
	}
	assertReset(t, view)
	if c.State() != Idle || view.control.Disabled {
		t.Fatalf("expected idle enabled control after failure")
	}
}

// reentrantView reads the controller state from inside RenderControl.
type reentrantView struct {
	viewFake
	controller *Controller
	observed   []State
}

func (v *reentrantView) RenderControl(state ControlState) {
	v.viewFake.RenderControl(state)
	if v.controller != nil {
		v.observed = append(v.observed, v.controller.State())
	}
}

func TestViewCallbacksMayReadState(t *testing.T) {
	view := &reentrantView{viewFake: viewFake{text: "hello"}}
	c := New(view, &transportFake{resp: analyzer.Response{Category: "Productive"}}, WithLogger(discardLogger()))
	view.controller = c

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), &eventFake{}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Submit deadlocked when the view read the controller state")
	}

	if diff := cmp.Diff([]State{Busy, Idle}, view.observed); diff != "" {
		t.Fatalf("observed states mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitRendersServerResponseShapes(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		category string
		reply    string
	}{
		{name: "array", body: `[]`, category: "Not defined", reply: "No suggested reply"},
		{name: "string", body: `"ok"`, category: "Not defined", reply: "No suggested reply"},
		{name: "boolean error", body: `{"error":true}`, category: "Error", reply: "true"},
		{name: "numeric category", body: `{"category":7}`, category: "7", reply: "No suggested reply"},
		{name: "null", body: `null`, category: "Error", reply: "could not connect to the server"},
		{name: "html", body: `<h1>502</h1>`, category: "Error", reply: "could not connect to the server"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			view := &viewFake{text: "hello"}
			c := New(view, analyzer.New(srv.URL), WithLogger(discardLogger()))

			if err := c.Submit(context.Background(), &eventFake{}); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if view.category != tc.category || view.reply != tc.reply {
				t.Fatalf("got %q / %q, want %q / %q", view.category, view.reply, tc.category, tc.reply)
			}
			assertReset(t, view)
		})
	}
}
