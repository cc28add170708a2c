package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/core/ports"
)

// Router dispatches an upload to the extractor registered for its file extension.
type Router struct {
	byExt map[string]ports.TextExtractor
}

func NewRouter() *Router {
	return &Router{byExt: make(map[string]ports.TextExtractor)}
}

// Register binds extractor to the given extensions (with or without the leading dot).
func (r *Router) Register(extractor ports.TextExtractor, extensions ...string) *Router {
	for _, ext := range extensions {
		r.byExt[normalizeExt(ext)] = extractor
	}
	return r
}

func (r *Router) Extract(ctx context.Context, upload domain.Upload) (string, error) {
	ext := normalizeExt(filepath.Ext(upload.Filename))
	extractor, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("no extractor for %q", upload.Filename))
	}
	return extractor.Extract(ctx, upload)
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
