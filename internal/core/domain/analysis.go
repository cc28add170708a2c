package domain

import "time"

type SourceKind string

const (
	SourceText SourceKind = "text"
	SourceFile SourceKind = "file"
)

const (
	CategoryProductive   = "Productive"
	CategoryUnproductive = "Unproductive"
)

// Upload is a single file received with a submission.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Submission is what the analyzer receives from one form post.
type Submission struct {
	RequestID string
	Text      string
	File      *Upload
}

type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence,omitempty"`
	Classifier string  `json:"classifier"`
}

// Analysis is the outcome of a successful submission.
type Analysis struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	SuggestedReply string     `json:"suggested_reply"`
	Confidence     float64    `json:"confidence,omitempty"`
	Classifier     string     `json:"classifier"`
	Source         SourceKind `json:"source"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AnalysisRecord is the audit trail of one analysis. It never holds the submitted content.
type AnalysisRecord struct {
	ID            string
	RequestID     string
	Source        SourceKind
	FileExtension string
	ContentLength int
	Category      string
	Classifier    string
	Error         string
	CreatedAt     time.Time
}
