package domain

import (
	"context"
	"io"
	"strings"
	"time"
)

// DefaultLanguage is used when an assessment or a generation request carries no language tag.
const DefaultLanguage = "en"

// Well-known message senders. Sender is otherwise a free-form role label.
const (
	SenderSystem   = "System"
	SenderBank     = "Bank"
	SenderCustomer = "Customer"
)

// Customer owns zero or more assessments.
// Invariants: Email, Mobile, PAN and AccountNumber are unique across customers.
type Customer struct {
	ID            int64
	Name          string
	Gender        string
	DateOfBirth   *time.Time
	Email         string
	Mobile        string
	PAN           string
	AccountNumber string
	IFSC          string
	BankName      string
	CreatedAt     time.Time
	LastAccessed  *time.Time
}

// DisplayName is the name shown on reviewer dashboards.
func (c Customer) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return c.Email
}

// Assessment is one completed questionnaire for a customer.
// Status equals Decide(Score) at creation time unless a reviewer overrode it later.
type Assessment struct {
	ID         int64
	CustomerID int64
	Score      int
	Status     Status
	Answers    Answers
	Breakdown  *Breakdown
	Language   string
	CreatedAt  time.Time

	// Thread items; populated only by reads that load the thread.
	Messages  []Message
	Documents []Document
}

// AssessmentSummary is an assessment enriched with its owner's display name.
type AssessmentSummary struct {
	Assessment
	CustomerName string
}

// ListFilter narrows reviewer listings. Zero values mean "no filter".
type ListFilter struct {
	Status     Status
	CustomerID int64
	Limit      int
	Offset     int
}

// StatusChange records a manual status override.
type StatusChange struct {
	ID           int64
	AssessmentID int64
	From         Status
	To           Status
	ChangedBy    string
	CreatedAt    time.Time
}

// Message belongs to exactly one assessment. Kind is assigned by the writer and
// stored; Text holds a serialized DocumentRequest only when Kind says so.
type Message struct {
	ID           int64
	AssessmentID int64
	Sender       string
	Text         string
	Kind         MessageKind
	CreatedAt    time.Time
}

// DocumentRequest decodes Text when the message is tagged as a document request.
func (m Message) DocumentRequest() (DocumentRequest, bool) {
	if m.Kind != MessageKindDocumentRequest {
		return DocumentRequest{}, false
	}
	return ParseDocumentRequest(m.Text)
}

// Document is an upload record. The bytes live in FileStorage.
type Document struct {
	ID           int64
	AssessmentID int64
	StoredName   string
	OriginalName string
	StoragePath  string
	DocType      *string
	UploadedAt   time.Time
}

// QuestionOption is one weighted answer of a dynamic question.
type QuestionOption struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// DynamicQuestion is a generated behavioral question.
type DynamicQuestion struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	Language  string           `json:"language"`
	Options   []QuestionOption `json:"options"`
	CreatedAt time.Time        `json:"created_at"`
}

// BankUser is a reviewer identity.
type BankUser struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Event types published after successful writes.
const (
	EventAssessmentSubmitted = "assessment.submitted"
	EventStatusChanged       = "assessment.status_changed"
	EventDocumentsRequested  = "assessment.documents_requested"
	EventDocumentUploaded    = "assessment.document_uploaded"
	EventMessagePosted       = "assessment.message_posted"
)

// Event is a notification about a committed change to an assessment.
type Event struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	AssessmentID int64          `json:"assessment_id"`
	CustomerID   int64          `json:"customer_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Repositories (ports)

type CustomerRepository interface {
	Create(ctx Context, c Customer) (Customer, error)
	Get(ctx Context, id int64) (Customer, error)
}

type AssessmentRepository interface {
	// CreateAndTouch inserts the assessment and sets the owner's last_accessed in one transaction.
	CreateAndTouch(ctx Context, a Assessment) (Assessment, error)
	// Latest returns the newest assessment of a customer with its thread, or ErrNotFound.
	Latest(ctx Context, customerID int64) (Assessment, error)
	Get(ctx Context, id int64) (Assessment, error)
	List(ctx Context, f ListFilter) ([]AssessmentSummary, error)
	// UpdateStatus overwrites the status and records the change in one transaction.
	UpdateStatus(ctx Context, id int64, status Status, changedBy string) (Assessment, StatusChange, error)
	StatusHistory(ctx Context, id int64) ([]StatusChange, error)
}

type MessageRepository interface {
	Create(ctx Context, m Message) (Message, error)
	ListByAssessment(ctx Context, assessmentID int64) ([]Message, error)
}

type DocumentRepository interface {
	// CreateWithMessage stores the document and its announcing message atomically.
	CreateWithMessage(ctx Context, d Document, m Message) (Document, Message, error)
	ListByAssessment(ctx Context, assessmentID int64) ([]Document, error)
}

type DynamicQuestionRepository interface {
	SaveBatch(ctx Context, qs []DynamicQuestion) error
}

type BankUserRepository interface {
	GetByUsername(ctx Context, username string) (BankUser, error)
}

// FileStorage (port) stores upload bytes; the core never reads them back.
type FileStorage interface {
	Save(ctx Context, originalName string, r io.Reader) (storedName, path string, err error)
	Remove(ctx Context, path string) error
}

// CompletionClient (port) is the external text-completion service.
// Implementations classify failures as ErrUpstreamRateLimit, ErrUpstreamTimeout or ErrUpstreamUnavailable.
type CompletionClient interface {
	Complete(ctx Context, prompt, language string) (string, error)
}

// QuestionGenerator (port) produces normalized dynamic questions.
type QuestionGenerator interface {
	Generate(ctx Context, excludedTopicIDs []string, language string) ([]DynamicQuestion, error)
}

// Limiter (port) guards generation quota per key.
type Limiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// EventPublisher (port) delivers events after commit. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx Context, e Event) error
}

// Context is an alias so ports read the same as the adapters implementing them.
type Context = context.Context
