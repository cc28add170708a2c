package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, upload domain.Upload) (string, error) {
	raw := bytes.TrimPrefix(upload.Content, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode text file", fmt.Errorf("%s is not valid utf-8", upload.Filename))
	}
	return strings.TrimSpace(string(raw)), nil
}
