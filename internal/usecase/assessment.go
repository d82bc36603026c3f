// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// AssessmentService records questionnaire outcomes and serves them to customers and reviewers.
type AssessmentService struct {
	Customers   domain.CustomerRepository
	Assessments domain.AssessmentRepository
	Events      domain.EventPublisher
}

// NewAssessmentService constructs an AssessmentService. events may be nil.
func NewAssessmentService(c domain.CustomerRepository, a domain.AssessmentRepository, events domain.EventPublisher) AssessmentService {
	return AssessmentService{Customers: c, Assessments: a, Events: events}
}

// SubmitInput is a scored questionnaire as produced by the client.
type SubmitInput struct {
	CustomerID int64
	Score      int
	Answers    domain.Answers
	Breakdown  *domain.Breakdown
	Language   string
}

// RegisterCustomer normalizes and stores a customer profile.
func (s AssessmentService) RegisterCustomer(ctx domain.Context, c domain.Customer) (domain.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Gender = strings.TrimSpace(c.Gender)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Mobile = strings.TrimSpace(c.Mobile)
	c.PAN = strings.ToUpper(strings.TrimSpace(c.PAN))
	c.AccountNumber = strings.TrimSpace(c.AccountNumber)
	c.IFSC = strings.ToUpper(strings.TrimSpace(c.IFSC))
	c.BankName = strings.TrimSpace(c.BankName)
	required := []struct{ name, val string }{
		{"name", c.Name}, {"email", c.Email}, {"mobile", c.Mobile},
		{"pan", c.PAN}, {"account_number", c.AccountNumber},
	}
	for _, f := range required {
		if f.val == "" {
			return domain.Customer{}, fmt.Errorf("%w: %s required", domain.ErrInvalidArgument, f.name)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.Customers.Create(ctx, c)
}

// Submit decides the status of a scored questionnaire and persists it.
// The owner's last_accessed is updated in the same transaction.
func (s AssessmentService) Submit(ctx domain.Context, in SubmitInput) (domain.Assessment, error) {
	if in.CustomerID <= 0 {
		return domain.Assessment{}, fmt.Errorf("%w: customer_id required", domain.ErrInvalidArgument)
	}
	if err := in.Answers.Validate(); err != nil {
		return domain.Assessment{}, err
	}
	if err := in.Breakdown.Validate(); err != nil {
		return domain.Assessment{}, err
	}
	if _, err := s.Customers.Get(ctx, in.CustomerID); err != nil {
		return domain.Assessment{}, err
	}
	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	a := domain.Assessment{
		CustomerID: in.CustomerID,
		Score:      in.Score,
		Status:     domain.Decide(in.Score),
		Answers:    in.Answers,
		Breakdown:  in.Breakdown,
		Language:   lang,
		CreatedAt:  time.Now().UTC(),
	}
	saved, err := s.Assessments.CreateAndTouch(ctx, a)
	if err != nil {
		return domain.Assessment{}, err
	}
	observability.ObserveDecision(string(saved.Status), saved.Score)
	obsctx.LoggerFromContext(ctx).Info("assessment submitted",
		slog.Int64("assessment_id", saved.ID),
		slog.Int64("customer_id", saved.CustomerID),
		slog.Int("score", saved.Score),
		slog.String("status", string(saved.Status)))
	publish(ctx, s.Events, domain.Event{
		Type:         domain.EventAssessmentSubmitted,
		AssessmentID: saved.ID,
		CustomerID:   saved.CustomerID,
		Payload:      map[string]any{"score": saved.Score, "status": string(saved.Status)},
	})
	return saved, nil
}

// GetLatest returns the newest assessment of a customer with its thread, or nil when there is none.
func (s AssessmentService) GetLatest(ctx domain.Context, customerID int64) (*domain.Assessment, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer_id required", domain.ErrInvalidArgument)
	}
	a, err := s.Assessments.Latest(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAll returns assessments newest first for reviewers.
func (s AssessmentService) ListAll(ctx domain.Context, f domain.ListFilter) ([]domain.AssessmentSummary, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, f.Status)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	out, err := s.Assessments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.AssessmentSummary{}
	}
	return out, nil
}

// UpdateStatus overwrites the status of an assessment regardless of its score.
// changedBy defaults to the bank role label.
func (s AssessmentService) UpdateStatus(ctx domain.Context, assessmentID int64, status domain.Status, changedBy string) (domain.Assessment, error) {
	if assessmentID <= 0 {
		return domain.Assessment{}, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	if !status.Valid() {
		return domain.Assessment{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, status)
	}
	changedBy = strings.TrimSpace(changedBy)
	if changedBy == "" {
		changedBy = domain.SenderBank
	}
	a, change, err := s.Assessments.UpdateStatus(ctx, assessmentID, status, changedBy)
	if err != nil {
		return domain.Assessment{}, err
	}
	observability.RecordStatusOverride(string(change.To))
	obsctx.LoggerFromContext(ctx).Info("assessment status overridden",
		slog.Int64("assessment_id", a.ID),
		slog.String("from", string(change.From)),
		slog.String("to", string(change.To)),
		slog.String("changed_by", changedBy))
	publish(ctx, s.Events, domain.Event{
		Type:         domain.EventStatusChanged,
		AssessmentID: a.ID,
		CustomerID:   a.CustomerID,
		Payload:      map[string]any{"from": string(change.From), "to": string(change.To), "changed_by": changedBy},
	})
	return a, nil
}

// History returns the status overrides of an assessment, oldest first.
func (s AssessmentService) History(ctx domain.Context, assessmentID int64) ([]domain.StatusChange, error) {
	if assessmentID <= 0 {
		return nil, fmt.Errorf("%w: assessment id required", domain.ErrInvalidArgument)
	}
	if _, err := s.Assessments.Get(ctx, assessmentID); err != nil {
		return nil, err
	}
	out, err := s.Assessments.StatusHistory(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.StatusChange{}
	}
	return out, nil
}
