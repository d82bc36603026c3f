package httpserver_test

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

type customerRepoMock struct{ mock.Mock }

func (m *customerRepoMock) Create(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Customer), args.Error(1)
}

func (m *customerRepoMock) Get(ctx context.Context, id int64) (domain.Customer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Customer), args.Error(1)
}

type assessmentRepoMock struct{ mock.Mock }

func (m *assessmentRepoMock) CreateAndTouch(ctx context.Context, a domain.Assessment) (domain.Assessment, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(domain.Assessment), args.Error(1)
}

func (m *assessmentRepoMock) Latest(ctx context.Context, customerID int64) (domain.Assessment, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(domain.Assessment), args.Error(1)
}

func (m *assessmentRepoMock) Get(ctx context.Context, id int64) (domain.Assessment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Assessment), args.Error(1)
}

func (m *assessmentRepoMock) List(ctx context.Context, f domain.ListFilter) ([]domain.AssessmentSummary, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.AssessmentSummary), args.Error(1)
}

func (m *assessmentRepoMock) UpdateStatus(ctx context.Context, id int64, st domain.Status, by string) (domain.Assessment, domain.StatusChange, error) {
	args := m.Called(ctx, id, st, by)
	return args.Get(0).(domain.Assessment), args.Get(1).(domain.StatusChange), args.Error(2)
}

func (m *assessmentRepoMock) StatusHistory(ctx context.Context, id int64) ([]domain.StatusChange, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.StatusChange), args.Error(1)
}

type messageRepoMock struct{ mock.Mock }

func (m *messageRepoMock) Create(ctx context.Context, msg domain.Message) (domain.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(domain.Message), args.Error(1)
}

func (m *messageRepoMock) ListByAssessment(ctx context.Context, id int64) ([]domain.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.Message), args.Error(1)
}

type documentRepoMock struct{ mock.Mock }

func (m *documentRepoMock) CreateWithMessage(ctx context.Context, d domain.Document, msg domain.Message) (domain.Document, domain.Message, error) {
	args := m.Called(ctx, d, msg)
	return args.Get(0).(domain.Document), args.Get(1).(domain.Message), args.Error(2)
}

func (m *documentRepoMock) ListByAssessment(ctx context.Context, id int64) ([]domain.Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.Document), args.Error(1)
}

type fileStorageMock struct{ mock.Mock }

func (m *fileStorageMock) Save(ctx context.Context, name string, r io.Reader) (string, string, error) {
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(ctx, name, r)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *fileStorageMock) Remove(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type bankUserRepoMock struct{ mock.Mock }

func (m *bankUserRepoMock) GetByUsername(ctx context.Context, username string) (domain.BankUser, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.BankUser), args.Error(1)
}

type generatorMock struct{ mock.Mock }

func (m *generatorMock) Generate(ctx context.Context, excluded []string, language string) ([]domain.DynamicQuestion, error) {
	args := m.Called(ctx, excluded, language)
	qs, _ := args.Get(0).([]domain.DynamicQuestion)
	return qs, args.Error(1)
}

type limiterMock struct{ mock.Mock }

func (m *limiterMock) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	args := m.Called(ctx, key, cost)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}
