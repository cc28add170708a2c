package huggingface

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/infrastructure/resilience"
)

const Name = "huggingface"

// maxInputChars keeps prompts well under the inference API payload limit.
const maxInputChars = 4000

type Client struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, model, token string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      strings.Trim(model, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// Classifier runs zero-shot classification over a fixed set of candidate labels.
type Classifier struct {
	client *Client
	labels []string
}

func NewClassifier(client *Client, labels []string) *Classifier {
	return &Classifier{client: client, labels: labels}
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if runes := []rune(text); len(runes) > maxInputChars {
		text = string(runes[:maxInputChars])
	}
	req := zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: c.labels},
	}

	var resp zeroShotResponse
	call := func(callCtx context.Context) error {
		return c.client.postJSON(callCtx, "/models/"+c.client.model, req, &resp, "classify")
	}

	var err error
	if c.client.executor != nil {
		err = c.client.executor.Execute(ctx, "huggingface.classify", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Classification{}, wrapTemporaryIfNeeded("huggingface classify", err)
	}

	result := domain.Classification{Classifier: Name}
	if len(resp.Labels) > 0 {
		result.Category = resp.Labels[0]
	}
	if len(resp.Scores) > 0 {
		result.Confidence = resp.Scores[0]
	}
	return result, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
