package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Answer is one questionnaire response. The questionnaire itself is owned by the
// client; only the shape is checked here.
type Answer struct {
	QuestionID  string  `json:"question_id"`
	OptionIndex *int    `json:"option_index,omitempty"`
	Value       float64 `json:"value"`
	Text        string  `json:"text,omitempty"`
}

// Answers is the persisted answer payload of an assessment.
type Answers []Answer

// Validate checks the answers are present and addressable by question id.
func (a Answers) Validate() error {
	if len(a) == 0 {
		return fmt.Errorf("%w: answers required", ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(a))
	for i, ans := range a {
		id := strings.TrimSpace(ans.QuestionID)
		if id == "" {
			return fmt.Errorf("%w: answers[%d].question_id required", ErrInvalidArgument, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate answer for question %q", ErrInvalidArgument, id)
		}
		if ans.OptionIndex != nil && *ans.OptionIndex < 0 {
			return fmt.Errorf("%w: answers[%d].option_index must not be negative", ErrInvalidArgument, i)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Breakdown explains how a score was reached.
type Breakdown struct {
	Categories map[string]float64 `json:"categories,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
}

// Validate rejects unnamed categories.
func (b *Breakdown) Validate() error {
	if b == nil {
		return nil
	}
	for k := range b.Categories {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: breakdown category name required", ErrInvalidArgument)
		}
	}
	return nil
}

// MessageKind distinguishes plain chat text from structured payloads.
type MessageKind string

// Valid reports whether k is a known kind.
func (k MessageKind) Valid() bool {
	return k == MessageKindText || k == MessageKindDocumentRequest
}

const (
	MessageKindText            MessageKind = "text"
	MessageKindDocumentRequest MessageKind = "document_request"
)

// DocumentRequest is the structured text of a document-request message.
type DocumentRequest struct {
	Type      MessageKind `json:"type"`
	Documents []string    `json:"documents"`
	Note      string      `json:"note,omitempty"`
}

// NewDocumentRequestText serializes a document request. Blank and repeated
// document types are dropped; at least one must remain.
func NewDocumentRequestText(docTypes []string, note string) (string, error) {
	docs := make([]string, 0, len(docTypes))
	seen := make(map[string]struct{}, len(docTypes))
	for _, d := range docTypes {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("%w: at least one document type required", ErrInvalidArgument)
	}
	b, err := json.Marshal(DocumentRequest{Type: MessageKindDocumentRequest, Documents: docs, Note: strings.TrimSpace(note)})
	if err != nil {
		return "", fmt.Errorf("op=domain.document_request: %w", err)
	}
	return string(b), nil
}

// ParseDocumentRequest decodes text as a document request. ok is false for plain text.
func ParseDocumentRequest(text string) (DocumentRequest, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "{") {
		return DocumentRequest{}, false
	}
	var dr DocumentRequest
	if err := json.Unmarshal([]byte(t), &dr); err != nil {
		return DocumentRequest{}, false
	}
	if dr.Type != MessageKindDocumentRequest {
		return DocumentRequest{}, false
	}
	return dr, true
}

// UploadAnnouncement is the system message text recorded with every document upload.
func UploadAnnouncement(docType, originalName string) string {
	if strings.TrimSpace(docType) == "" {
		docType = "document"
	}
	return fmt.Sprintf("Document uploaded: %s (%s)", docType, originalName)
}
