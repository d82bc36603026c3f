package usecase

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
	"github.com/fairyhunter13/ai-credit-assessor/pkg/textx"
)

// FollowUpService manages the message and document thread attached to an assessment.
type FollowUpService struct {
	Assessments domain.AssessmentRepository
	Messages    domain.MessageRepository
	Documents   domain.DocumentRepository
	Files       domain.FileStorage
	Events      domain.EventPublisher
}

// NewFollowUpService constructs a FollowUpService. events may be nil.
func NewFollowUpService(a domain.AssessmentRepository, m domain.MessageRepository, d domain.DocumentRepository, files domain.FileStorage, events domain.EventPublisher) FollowUpService {
	return FollowUpService{Assessments: a, Messages: m, Documents: d, Files: files, Events: events}
}

// UploadInput is one uploaded file for an assessment.
type UploadInput struct {
	AssessmentID int64
	OriginalName string
	DocType      string
	Content      io.Reader
	Size         int64
}

// RequestDocuments appends a document-request message. The assessment status is not touched.
func (s FollowUpService) RequestDocuments(ctx domain.Context, assessmentID int64, sender string, docTypes []string, note string) (domain.Message, error) {
	if assessmentID <= 0 {
		return domain.Message{}, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	text, err := domain.NewDocumentRequestText(docTypes, textx.SanitizeText(note))
	if err != nil {
		return domain.Message{}, err
	}
	if _, err := s.Assessments.Get(ctx, assessmentID); err != nil {
		return domain.Message{}, err
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = domain.SenderBank
	}
	m, err := s.Messages.Create(ctx, domain.Message{
		AssessmentID: assessmentID,
		Sender:       sender,
		Text:         text,
		Kind:         domain.MessageKindDocumentRequest,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.Message{}, err
	}
	observability.RecordDocumentRequest()
	publish(ctx, s.Events, domain.Event{
		Type:         domain.EventDocumentsRequested,
		AssessmentID: assessmentID,
		Payload:      map[string]any{"message_id": m.ID, "requested_by": sender},
	})
	return m, nil
}

// UploadDocument stores the bytes and records the document with a System announcement.
// The stored file is removed when the records cannot be written.
func (s FollowUpService) UploadDocument(ctx domain.Context, in UploadInput) (domain.Document, domain.Message, error) {
	if in.Content == nil || strings.TrimSpace(in.OriginalName) == "" {
		return domain.Document{}, domain.Message{}, fmt.Errorf("%w: file required", domain.ErrInvalidArgument)
	}
	if in.AssessmentID <= 0 {
		return domain.Document{}, domain.Message{}, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	if in.Size < 0 {
		return domain.Document{}, domain.Message{}, fmt.Errorf("%w: invalid size", domain.ErrInvalidArgument)
	}
	if _, err := s.Assessments.Get(ctx, in.AssessmentID); err != nil {
		return domain.Document{}, domain.Message{}, err
	}
	original := textx.SafeFilename(in.OriginalName)
	storedName, path, err := s.Files.Save(ctx, original, in.Content)
	if err != nil {
		return domain.Document{}, domain.Message{}, err
	}
	now := time.Now().UTC()
	doc := domain.Document{
		AssessmentID: in.AssessmentID,
		StoredName:   storedName,
		OriginalName: original,
		StoragePath:  path,
		UploadedAt:   now,
	}
	docType := strings.TrimSpace(in.DocType)
	if docType != "" {
		doc.DocType = &docType
	}
	msg := domain.Message{
		AssessmentID: in.AssessmentID,
		Sender:       domain.SenderSystem,
		Text:         domain.UploadAnnouncement(docType, original),
		Kind:         domain.MessageKindText,
		CreatedAt:    now,
	}
	savedDoc, savedMsg, err := s.Documents.CreateWithMessage(ctx, doc, msg)
	if err != nil {
		if rmErr := s.Files.Remove(ctx, path); rmErr != nil {
			obsctx.LoggerFromContext(ctx).Warn("orphan upload not removed",
				slog.String("path", path),
				slog.Any("error", rmErr))
		}
		return domain.Document{}, domain.Message{}, err
	}
	observability.RecordDocumentUpload()
	obsctx.LoggerFromContext(ctx).Info("document uploaded",
		slog.Int64("assessment_id", in.AssessmentID),
		slog.Int64("document_id", savedDoc.ID),
		slog.String("stored_name", storedName))
	publish(ctx, s.Events, domain.Event{
		Type:         domain.EventDocumentUploaded,
		AssessmentID: in.AssessmentID,
		Payload:      map[string]any{"document_id": savedDoc.ID, "doc_type": docType, "original_name": original},
	})
	return savedDoc, savedMsg, nil
}

// PostMessage appends a chat message to the thread of an existing assessment.
// Posted messages are always plain text whatever their content looks like.
func (s FollowUpService) PostMessage(ctx domain.Context, assessmentID int64, sender, text string) (domain.Message, error) {
	if assessmentID <= 0 {
		return domain.Message{}, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	text = textx.SanitizeText(text)
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: text required", domain.ErrInvalidArgument)
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = domain.SenderCustomer
	}
	if _, err := s.Assessments.Get(ctx, assessmentID); err != nil {
		return domain.Message{}, err
	}
	m, err := s.Messages.Create(ctx, domain.Message{
		AssessmentID: assessmentID,
		Sender:       sender,
		Text:         text,
		Kind:         domain.MessageKindText,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.Message{}, err
	}
	publish(ctx, s.Events, domain.Event{
		Type:         domain.EventMessagePosted,
		AssessmentID: assessmentID,
		Payload:      map[string]any{"message_id": m.ID, "sender": sender},
	})
	return m, nil
}

// GetMessages returns the thread oldest first; an empty slice when there is none.
func (s FollowUpService) GetMessages(ctx domain.Context, assessmentID int64) ([]domain.Message, error) {
	if assessmentID <= 0 {
		return nil, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	out, err := s.Messages.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Message{}
	}
	return out, nil
}

// ListDocuments returns the uploads of an assessment oldest first.
func (s FollowUpService) ListDocuments(ctx domain.Context, assessmentID int64) ([]domain.Document, error) {
	if assessmentID <= 0 {
		return nil, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	out, err := s.Documents.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out, nil
}
