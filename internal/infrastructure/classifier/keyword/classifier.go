package keyword

import (
	"context"
	"strings"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
)

const Name = "keyword"

// Classifier marks content productive when it mentions any of the configured keywords.
type Classifier struct {
	keywords     []string
	productive   string
	unproductive string
}

func New(keywords []string, productive, unproductive string) *Classifier {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &Classifier{
		keywords:     normalized,
		productive:   productive,
		unproductive: unproductive,
	}
}

func (c *Classifier) Classify(_ context.Context, text string) (domain.Classification, error) {
	lowered := strings.ToLower(text)
	category := c.unproductive
	for _, kw := range c.keywords {
		if strings.Contains(lowered, kw) {
			category = c.productive
			break
		}
	}
	return domain.Classification{Category: category, Classifier: Name}, nil
}
