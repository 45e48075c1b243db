package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
)

// Job represents one document's end-to-end processing unit.
//
// InputRef / ExtractedTextRef / SummaryRef are blob-store keys, never
// payloads: large content stays out of the metadata record.
type Job struct {
	ID               uuid.UUID          `json:"id"`
	State            constants.JobState `json:"state"`
	InputRef         string             `json:"input_ref"`
	MediaType        string             `json:"media_type"`
	ExtractedTextRef *string            `json:"extracted_text_ref,omitempty"`
	SummaryRef       *string            `json:"summary_ref,omitempty"`
	ErrorMessage     *string            `json:"error_message,omitempty"`

	// Bounded retry counters, one per stage.
	ExtractAttempts   int `json:"extract_attempts"`
	SummarizeAttempts int `json:"summarize_attempts"`

	// Result metadata recorded on success.
	TextLength    int           `json:"text_length,omitempty"`
	SummaryLength int           `json:"summary_length,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	RetainUntil *time.Time `json:"retain_until,omitempty"`
}
