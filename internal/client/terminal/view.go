// Package terminal binds the form controller to a terminal.
package terminal

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/kirillkom/email-analyzer/internal/client/form"
)

// View keeps the form inputs in memory and prints panel changes to out.
type View struct {
	out io.Writer

	mu       sync.Mutex
	text     string
	file     *form.SelectedFile
	category string
	reply    string
}

func NewView(out io.Writer) *View {
	return &View{out: out}
}

func (v *View) SetText(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.text = text
}

// SelectFile reads path from disk into the file input.
func (v *View) SelectFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.file = &form.SelectedFile{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Content:     content,
	}
	return nil
}

// Result returns what the result panel currently shows.
func (v *View) Result() (category, reply string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.category, v.reply
}

func (v *View) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.text
}

func (v *View) ClearText() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.text = ""
}

func (v *View) SelectedFile() *form.SelectedFile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.file
}

func (v *View) ClearFile() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.file = nil
}

func (v *View) ShowFilePreview() {}

func (v *View) HideFilePreview() {}

func (v *View) SetFileName(name string) {
	if name != "" {
		v.printf("Selected file: %s\n", name)
	}
}

func (v *View) ShowResult() {
	v.printf("\n")
}

func (v *View) SetCategory(category string) {
	v.mu.Lock()
	v.category = category
	v.mu.Unlock()
	v.printf("Category: %s\n", category)
}

func (v *View) SetReply(reply string) {
	v.mu.Lock()
	v.reply = reply
	v.mu.Unlock()
	v.printf("Suggested reply: %s\n", reply)
}

func (v *View) RenderControl(state form.ControlState) {
	if state.Disabled {
		v.printf("%s\n", state.Label)
	}
}

func (v *View) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(v.out, format, args...)
}
