package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

// memStore is an in-memory stand-in for the postgres repositories.
type memStore struct {
	mu          sync.Mutex
	seq         int64
	customers   map[int64]domain.Customer
	assessments map[int64]domain.Assessment
	messages    []domain.Message
	documents   []domain.Document
	changes     []domain.StatusChange
	failWrites  error
}

func newMemStore() *memStore {
	return &memStore{customers: map[int64]domain.Customer{}, assessments: map[int64]domain.Assessment{}}
}

func (s *memStore) next() int64 { s.seq++; return s.seq }

func (s *memStore) Create(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.customers {
		if ex.Email == c.Email || ex.PAN == c.PAN {
			return domain.Customer{}, fmt.Errorf("op=customers.create: %w", domain.ErrConflict)
		}
	}
	c.ID = s.next()
	s.customers[c.ID] = c
	return c, nil
}

func (s *memStore) Get(_ context.Context, id int64) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("op=customers.get: %w", domain.ErrNotFound)
	}
	return c, nil
}

type assessmentRepo struct{ *memStore }

func (r assessmentRepo) CreateAndTouch(_ context.Context, a domain.Assessment) (domain.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return domain.Assessment{}, r.failWrites
	}
	c, ok := r.customers[a.CustomerID]
	if !ok {
		return domain.Assessment{}, fmt.Errorf("op=assessments.create: %w", domain.ErrNotFound)
	}
	a.ID = r.next()
	r.assessments[a.ID] = a
	// same rule as the database: wall clock, but always past the previous stamp
	touched := time.Now().UTC()
	if c.LastAccessed != nil && !touched.After(*c.LastAccessed) {
		touched = c.LastAccessed.Add(time.Microsecond)
	}
	c.LastAccessed = &touched
	r.customers[c.ID] = c
	return a, nil
}

func (r assessmentRepo) Latest(_ context.Context, customerID int64) (domain.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.Assessment
	for _, a := range r.assessments {
		if a.CustomerID != customerID {
			continue
		}
		if best == nil || a.CreatedAt.After(best.CreatedAt) || (a.CreatedAt.Equal(best.CreatedAt) && a.ID > best.ID) {
			cp := a
			best = &cp
		}
	}
	if best == nil {
		return domain.Assessment{}, fmt.Errorf("op=assessments.latest: %w", domain.ErrNotFound)
	}
	for _, m := range r.messages {
		if m.AssessmentID == best.ID {
			best.Messages = append(best.Messages, m)
		}
	}
	return *best, nil
}

func (r assessmentRepo) Get(_ context.Context, id int64) (domain.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return domain.Assessment{}, fmt.Errorf("op=assessments.get: %w", domain.ErrNotFound)
	}
	return a, nil
}

func (r assessmentRepo) List(_ context.Context, f domain.ListFilter) ([]domain.AssessmentSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AssessmentSummary
	for _, a := range r.assessments {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.CustomerID != 0 && a.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, domain.AssessmentSummary{Assessment: a, CustomerName: r.customers[a.CustomerID].DisplayName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r assessmentRepo) UpdateStatus(_ context.Context, id int64, status domain.Status, changedBy string) (domain.Assessment, domain.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.StatusChange{}, fmt.Errorf("op=assessments.update_status: %w", domain.ErrNotFound)
	}
	ch := domain.StatusChange{ID: r.next(), AssessmentID: id, From: a.Status, To: status, ChangedBy: changedBy, CreatedAt: time.Now().UTC()}
	a.Status = status
	r.assessments[id] = a
	r.changes = append(r.changes, ch)
	return a, ch, nil
}

func (r assessmentRepo) StatusHistory(_ context.Context, id int64) ([]domain.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StatusChange
	for _, c := range r.changes {
		if c.AssessmentID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

type messageRepo struct{ *memStore }

func (r messageRepo) Create(_ context.Context, m domain.Message) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return domain.Message{}, r.failWrites
	}
	m.ID = r.next()
	r.messages = append(r.messages, m)
	return m, nil
}

func (r messageRepo) ListByAssessment(_ context.Context, id int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.AssessmentID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

type documentRepo struct{ *memStore }

func (r documentRepo) CreateWithMessage(_ context.Context, d domain.Document, m domain.Message) (domain.Document, domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return domain.Document{}, domain.Message{}, r.failWrites
	}
	d.ID = r.next()
	m.ID = r.next()
	r.documents = append(r.documents, d)
	r.messages = append(r.messages, m)
	return d, m, nil
}

func (r documentRepo) ListByAssessment(_ context.Context, id int64) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Document
	for _, d := range r.documents {
		if d.AssessmentID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

type stubFiles struct {
	saved   map[string][]byte
	removed []string
	saveErr error
}

func newStubFiles() *stubFiles { return &stubFiles{saved: map[string][]byte{}} }

func (f *stubFiles) Save(_ context.Context, originalName string, r io.Reader) (string, string, error) {
	if f.saveErr != nil {
		return "", "", f.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}
	stored := fmt.Sprintf("stored-%d-%s", len(f.saved)+1, originalName)
	path := "/uploads/" + stored
	f.saved[path] = b
	return stored, path, nil
}

func (f *stubFiles) Remove(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	delete(f.saved, path)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errDB = errors.New("db down")
