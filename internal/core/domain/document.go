package domain

import "time"

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type ClassificationSource string

const (
	SourceAI       ClassificationSource = "ai"
	SourceFallback ClassificationSource = "fallback"
)

// Document is the read model handed to the engine by the extraction layer.
// Identity is the source path; Text is the cached extraction result.
type Document struct {
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Text        string    `json:"-"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	PreviewPath string    `json:"preview_path,omitempty"`
}

// ClassificationResult is immutable once produced; one per classification call.
type ClassificationResult struct {
	Category       string               `json:"category"`
	Subcategory    string               `json:"subcategory,omitempty"`
	SubSubcategory string               `json:"sub_subcategory,omitempty"`
	Confidence     Confidence           `json:"confidence"`
	Source         ClassificationSource `json:"source"`
	RawResponse    string               `json:"raw_response,omitempty"`
}

// TemplateMatch reports the best-scoring document template for a document.
// A nil match means the document stayed untemplated.
type TemplateMatch struct {
	TemplateID   string            `json:"template_id"`
	DocumentType string            `json:"document_type"`
	Confidence   float64           `json:"confidence"`
	Rank         int               `json:"rank"`
	Fields       map[string]string `json:"fields,omitempty"`
}

type DateSource string

const (
	DateFromContent  DateSource = "content"
	DateFromFilename DateSource = "filename"
	DateNone         DateSource = "none"
)

// ExtractedDate is a calendar date found in document text, tagged with the
// pattern rule that matched and its byte offset in the text.
type ExtractedDate struct {
	Date    time.Time `json:"date"`
	Pattern string    `json:"pattern"`
	Offset  int       `json:"-"`
}

// FilenameSuggestion is derived purely from document text plus the original
// filename; it is recomputed on demand and never performs a rename itself.
type FilenameSuggestion struct {
	OriginalFilename  string          `json:"original_filename"`
	SuggestedFilename string          `json:"suggested_filename"`
	Dates             []ExtractedDate `json:"extracted_dates"`
	SelectedDate      time.Time       `json:"selected_date"`
	DateSource        DateSource      `json:"date_source"`
	DateMissing       bool            `json:"date_missing"`
	Title             string          `json:"title,omitempty"`
	Candidates        []string        `json:"candidates,omitempty"`
}
