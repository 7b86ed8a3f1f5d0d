package model

import "time"

// Classified keeps the label the submitter picked next to its normalized code.
type Classified[T ~string] struct {
	Label string `json:"label"`
	Code  T      `json:"code"`
}

// SubmissionRecord is one customer report as it flows through the pipeline.
// It is created per event and never persisted here.
type SubmissionRecord struct {
	SubmissionID int64     `json:"submission_id"`
	TicketID     string    `json:"ticket_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Source       string    `json:"source"`
	RowIndex     int64     `json:"row_index"`

	Name          string                    `json:"name"`
	Email         string                    `json:"email"`
	Phone         string                    `json:"phone,omitempty"`
	Company       string                    `json:"company,omitempty"`
	ContactMethod Classified[ContactMethod] `json:"contact_method"`

	ReportType  Classified[ReportType]  `json:"report_type"`
	Priority    Classified[Priority]    `json:"priority"`
	ImpactScope Classified[ImpactScope] `json:"impact_scope"`

	Title            string `json:"title"`
	Description      string `json:"description"`
	StepsToReproduce string `json:"steps_to_reproduce,omitempty"`
	Environment      string `json:"environment,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	Notes            string `json:"notes,omitempty"`

	VideoURL    string `json:"video_url,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`

	// FileRefs are the opaque upload references from the form, in answer order.
	FileRefs    []string         `json:"file_refs,omitempty"`
	Attachments []AttachmentMeta `json:"attachments,omitempty"`
}

// HasLinks reports whether the submitter provided any reference link.
func (r *SubmissionRecord) HasLinks() bool {
	return r.VideoURL != "" || r.DocumentURL != ""
}

// AttachmentMeta describes one accepted upload.
type AttachmentMeta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	ViewURL      string `json:"view_url"`
	DownloadURL  string `json:"download_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
