// Package analyzer is the HTTP client for the POST /analyze endpoint.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

const analyzePath = "/analyze"

// ErrMalformedResponse is returned when the server answers with something that is not JSON.
var ErrMalformedResponse = errors.New("malformed analyzer response")

type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Submission is one form submission. Empty text and a nil file are left out of the request.
type Submission struct {
	Text string
	File *File
}

// Response mirrors the endpoint body. Error is set for rejected input. Non-string values
// sent by the server arrive as their JSON text.
type Response struct {
	Category       string `json:"category,omitempty"`
	SuggestedReply string `json:"suggested_reply,omitempty"`
	Error          string `json:"error,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithTimeout bounds each request. Zero means no client-side timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze posts the submission once. The status code is not interpreted: any JSON body is
// returned as the Response, so application errors arrive in Response.Error.
func (c *Client) Analyze(ctx context.Context, submission Submission) (Response, error) {
	body, contentType, err := encodeSubmission(submission)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, body)
	if err != nil {
		return Response{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post analyze: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read analyze response: %w", err)
	}

	out, err := decodeResponse(raw)
	if err != nil {
		return Response{}, fmt.Errorf("%w: status=%d: %v", ErrMalformedResponse, resp.StatusCode, err)
	}
	return out, nil
}

// decodeResponse accepts any JSON value. Only object fields that are truthy (not null,
// false, 0 or "") are taken, rendered as text. Other shapes yield an empty Response; a null
// body is rejected.
func decodeResponse(raw []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return Response{}, err
	}
	if dec.More() {
		return Response{}, errors.New("trailing data after JSON value")
	}
	if body == nil {
		return Response{}, errors.New("null body")
	}

	fields, ok := body.(map[string]any)
	if !ok {
		return Response{}, nil
	}
	return Response{
		Category:       textOf(fields["category"]),
		SuggestedReply: textOf(fields["suggested_reply"]),
		Error:          textOf(fields["error"]),
	}, nil
}

// textOf renders a truthy JSON value as text and returns "" for falsy ones.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return ""
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(encoded)
	}
}

func encodeSubmission(submission Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if submission.Text != "" {
		if err := writer.WriteField("text", submission.Text); err != nil {
			return nil, "", fmt.Errorf("write text field: %w", err)
		}
	}
	if submission.File != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, submission.File.Name))
		contentType := submission.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(submission.File.Content); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
