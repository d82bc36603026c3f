package httpserver

import (
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

type registerCustomerRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Gender        string `json:"gender" validate:"omitempty,max=32"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Mobile        string `json:"mobile" validate:"required,max=20"`
	PAN           string `json:"pan" validate:"required,alphanum,max=20"`
	AccountNumber string `json:"account_number" validate:"required,max=34"`
	IFSC          string `json:"ifsc" validate:"omitempty,alphanum,max=11"`
	BankName      string `json:"bank_name" validate:"omitempty,max=200"`
}

type answerRequest struct {
	QuestionID  string  `json:"question_id" validate:"required,max=100"`
	OptionIndex *int    `json:"option_index" validate:"omitempty,gte=0"`
	Value       float64 `json:"value"`
	Text        string  `json:"text" validate:"max=1000"`
}

type submitAssessmentRequest struct {
	CustomerID int64             `json:"customer_id" validate:"required,gt=0"`
	Score      *int              `json:"score" validate:"required"`
	Answers    []answerRequest   `json:"answers" validate:"required,min=1,max=200,dive"`
	Breakdown  *domain.Breakdown `json:"breakdown"`
	Language   string            `json:"language" validate:"omitempty,max=8"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type documentRequestRequest struct {
	Documents []string `json:"documents" validate:"required,min=1,max=20,dive,max=100"`
	Note      string   `json:"note" validate:"max=1000"`
}

type postMessageRequest struct {
	Sender string `json:"sender" validate:"omitempty,max=50"`
	Text   string `json:"text" validate:"required,max=4000"`
}

type questionsRequest struct {
	Language       string   `json:"language" validate:"omitempty,max=8"`
	ExcludedTopics []string `json:"excluded_topics" validate:"max=50,dive,max=100"`
}

type customerResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Gender        string     `json:"gender,omitempty"`
	DateOfBirth   string     `json:"date_of_birth,omitempty"`
	Email         string     `json:"email"`
	Mobile        string     `json:"mobile"`
	PAN           string     `json:"pan"`
	AccountNumber string     `json:"account_number"`
	IFSC          string     `json:"ifsc,omitempty"`
	BankName      string     `json:"bank_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
}

type messageResponse struct {
	ID              int64                   `json:"id"`
	AssessmentID    int64                   `json:"assessment_id"`
	Sender          string                  `json:"sender"`
	Text            string                  `json:"text"`
	Kind            domain.MessageKind      `json:"kind"`
	DocumentRequest *domain.DocumentRequest `json:"document_request,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

type documentResponse struct {
	ID           int64     `json:"id"`
	AssessmentID int64     `json:"assessment_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	DocType      *string   `json:"doc_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type assessmentResponse struct {
	ID           int64              `json:"id"`
	CustomerID   int64              `json:"customer_id"`
	CustomerName string             `json:"customer_name,omitempty"`
	Score        int                `json:"score"`
	Status       domain.Status      `json:"status"`
	Answers      domain.Answers     `json:"answers"`
	Breakdown    *domain.Breakdown  `json:"breakdown,omitempty"`
	Language     string             `json:"language"`
	CreatedAt    time.Time          `json:"created_at"`
	Messages     []messageResponse  `json:"messages,omitempty"`
	Documents    []documentResponse `json:"documents,omitempty"`
}

type statusChangeResponse struct {
	ID           int64         `json:"id"`
	AssessmentID int64         `json:"assessment_id"`
	From         domain.Status `json:"from"`
	To           domain.Status `json:"to"`
	ChangedBy    string        `json:"changed_by"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (req registerCustomerRequest) toDomain() (domain.Customer, error) {
	c := domain.Customer{
		Name:          req.Name,
		Gender:        req.Gender,
		Email:         req.Email,
		Mobile:        req.Mobile,
		PAN:           req.PAN,
		AccountNumber: req.AccountNumber,
		IFSC:          req.IFSC,
		BankName:      req.BankName,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return domain.Customer{}, err
		}
		c.DateOfBirth = &dob
	}
	return c, nil
}

func toCustomerResponse(c domain.Customer) customerResponse {
	out := customerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Gender:        c.Gender,
		Email:         c.Email,
		Mobile:        c.Mobile,
		PAN:           c.PAN,
		AccountNumber: c.AccountNumber,
		IFSC:          c.IFSC,
		BankName:      c.BankName,
		CreatedAt:     c.CreatedAt,
		LastAccessed:  c.LastAccessed,
	}
	if c.DateOfBirth != nil {
		out.DateOfBirth = c.DateOfBirth.Format("2006-01-02")
	}
	return out
}

func toAnswers(in []answerRequest) domain.Answers {
	out := make(domain.Answers, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Answer{QuestionID: a.QuestionID, OptionIndex: a.OptionIndex, Value: a.Value, Text: a.Text})
	}
	return out
}

func toMessageResponse(m domain.Message) messageResponse {
	out := messageResponse{
		ID:           m.ID,
		AssessmentID: m.AssessmentID,
		Sender:       m.Sender,
		Text:         m.Text,
		Kind:         m.Kind,
		CreatedAt:    m.CreatedAt,
	}
	if !out.Kind.Valid() {
		out.Kind = domain.MessageKindText
	}
	if dr, ok := m.DocumentRequest(); ok {
		out.DocumentRequest = &dr
	}
	return out
}

func toMessageResponses(ms []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toDocumentResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		AssessmentID: d.AssessmentID,
		OriginalName: d.OriginalName,
		StoredName:   d.StoredName,
		DocType:      d.DocType,
		UploadedAt:   d.UploadedAt,
	}
}

func toDocumentResponses(ds []domain.Document) []documentResponse {
	out := make([]documentResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDocumentResponse(d))
	}
	return out
}

func toAssessmentResponse(a domain.Assessment) assessmentResponse {
	out := assessmentResponse{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Score:      a.Score,
		Status:     a.Status,
		Answers:    a.Answers,
		Breakdown:  a.Breakdown,
		Language:   a.Language,
		CreatedAt:  a.CreatedAt,
	}
	if len(a.Messages) > 0 {
		out.Messages = toMessageResponses(a.Messages)
	}
	if len(a.Documents) > 0 {
		out.Documents = toDocumentResponses(a.Documents)
	}
	return out
}

func toStatusChangeResponses(cs []domain.StatusChange) []statusChangeResponse {
	out := make([]statusChangeResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, statusChangeResponse{
			ID:           c.ID,
			AssessmentID: c.AssessmentID,
			From:         c.From,
			To:           c.To,
			ChangedBy:    c.ChangedBy,
			CreatedAt:    c.CreatedAt,
		})
	}
	return out
}
