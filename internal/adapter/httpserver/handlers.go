package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	"github.com/fairyhunter13/ai-credit-assessor/internal/usecase"
)

// Server aggregates handlers dependencies.
type Server struct {
	Cfg         config.Config
	Assessments usecase.AssessmentService
	FollowUps   usecase.FollowUpService
	Questions   usecase.QuestionService
	Reviewers   domain.BankUserRepository
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// redisCheck may be nil when the generation quota is disabled.
func NewServer(cfg config.Config, assessments usecase.AssessmentService, followUps usecase.FollowUpService, questions usecase.QuestionService, reviewers domain.BankUserRepository, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:         cfg,
		Assessments: assessments,
		FollowUps:   followUps,
		Questions:   questions,
		Reviewers:   reviewers,
		DBCheck:     dbCheck,
		RedisCheck:  redisCheck,
	}
}

// ReviewerGuard returns the Basic auth middleware for bank-side routes.
func (s *Server) ReviewerGuard() func(http.Handler) http.Handler {
	return ReviewerAuth(s.Reviewers)
}

// RegisterCustomerHandler creates a customer profile.
func (s *Server) RegisterCustomerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerCustomerRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := req.toDomain()
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: date_of_birth: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		created, err := s.Assessments.RegisterCustomer(r.Context(), c)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toCustomerResponse(created))
	}
}

// SubmitAssessmentHandler records a scored questionnaire and returns the decided assessment.
func (s *Server) SubmitAssessmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitAssessmentRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		a, err := s.Assessments.Submit(r.Context(), usecase.SubmitInput{
			CustomerID: req.CustomerID,
			Score:      *req.Score,
			Answers:    toAnswers(req.Answers),
			Breakdown:  req.Breakdown,
			Language:   req.Language,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toAssessmentResponse(a))
	}
}

// LatestAssessmentHandler returns the newest assessment of a customer, or null.
func (s *Server) LatestAssessmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		a, err := s.Assessments.GetLatest(r.Context(), customerID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if a == nil {
			writeJSON(w, http.StatusOK, map[string]any{"assessment": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assessment": toAssessmentResponse(*a)})
	}
}

// ListAssessmentsHandler lists assessments for reviewers, newest first.
func (s *Server) ListAssessmentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			st, err := domain.ParseStatus(raw)
			if err != nil {
				writeError(w, r, err, map[string]string{"field": "status"})
				return
			}
			f.Status = st
		}
		var err error
		if f.Limit, err = queryInt(r, "limit", 0); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if f.Offset, err = queryInt(r, "offset", 0); err != nil {
			writeError(w, r, err, nil)
			return
		}
		customerID, err := queryInt(r, "customer_id", 0)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		f.CustomerID = int64(customerID)
		items, err := s.Assessments.ListAll(r.Context(), f)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]assessmentResponse, 0, len(items))
		for _, it := range items {
			ar := toAssessmentResponse(it.Assessment)
			ar.CustomerName = it.CustomerName
			out = append(out, ar)
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "limit": f.Limit, "offset": f.Offset})
	}
}

// UpdateStatusHandler overrides the status of an assessment on behalf of the authenticated reviewer.
func (s *Server) UpdateStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req updateStatusRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "status"})
			return
		}
		reviewer, _ := ReviewerFromContext(r.Context())
		a, err := s.Assessments.UpdateStatus(r.Context(), id, st, reviewer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toAssessmentResponse(a))
	}
}

// StatusHistoryHandler returns the override audit trail of an assessment.
func (s *Server) StatusHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		changes, err := s.Assessments.History(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": toStatusChangeResponses(changes)})
	}
}

// RequestDocumentsHandler appends a document-request message to the thread.
func (s *Server) RequestDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req documentRequestRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sender, _ := ReviewerFromContext(r.Context())
		m, err := s.FollowUps.RequestDocuments(r.Context(), id, sender, req.Documents, req.Note)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageResponse(m))
	}
}

// allowedUploadExt enforces an extension allowlist for follow-up documents.
func allowedUploadExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".txt":
		return true
	default:
		return false
	}
}

func allowedUploadMIME(m *mimetype.MIME) bool {
	for _, ok := range []string{"application/pdf", "image/png", "image/jpeg", "text/plain"} {
		if m.Is(ok) {
			return true
		}
	}
	return false
}

// UploadDocumentHandler accepts a multipart "file" with an optional "doc_type" field.
func (s *Server) UploadDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadBytes()
		// room for the multipart envelope and form fields
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    domain.CodeInvalidArgument,
					Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()
		if header.Size > maxBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code:    domain.CodeInvalidArgument,
				Message: "payload too large",
				Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
			}})
			return
		}
		if !allowedUploadExt(header.Filename) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code:    domain.CodeInvalidArgument,
				Message: "unsupported file extension",
				Details: map[string]string{"file": header.Filename},
			}})
			return
		}
		// Content sniffing with mimetype; enforce allowlist
		mt, err := mimetype.DetectReader(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: unreadable file: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if !allowedUploadMIME(mt) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code:    domain.CodeInvalidArgument,
				Message: "unsupported media type",
				Details: map[string]string{"mime": mt.String()},
			}})
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeError(w, r, fmt.Errorf("op=http.upload: rewind: %w", err), nil)
			return
		}
		doc, msg, err := s.FollowUps.UploadDocument(r.Context(), usecase.UploadInput{
			AssessmentID: id,
			OriginalName: header.Filename,
			DocType:      r.FormValue("doc_type"),
			Content:      file,
			Size:         header.Size,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"document": toDocumentResponse(doc),
			"message":  toMessageResponse(msg),
		})
	}
}

// ListDocumentsHandler returns the uploads of an assessment.
func (s *Server) ListDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		docs, err := s.FollowUps.ListDocuments(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": toDocumentResponses(docs)})
	}
}

// PostMessageHandler appends a chat message to the thread.
func (s *Server) PostMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req postMessageRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		m, err := s.FollowUps.PostMessage(r.Context(), id, req.Sender, req.Text)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageResponse(m))
	}
}

// GetMessagesHandler returns the thread oldest first.
func (s *Server) GetMessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		msgs, err := s.FollowUps.GetMessages(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": toMessageResponses(msgs)})
	}
}

// GenerateQuestionsHandler returns a fresh set of dynamic questions. An empty body uses defaults.
func (s *Server) GenerateQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionsRequest
		if r.ContentLength != 0 {
			if details, err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err, details)
				return
			}
		}
		qs, err := s.Questions.Generate(r.Context(), clientKey(r), req.ExcludedTopics, req.Language)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		lang := domain.DefaultLanguage
		if len(qs) > 0 {
			lang = qs[0].Language
		}
		writeJSON(w, http.StatusOK, map[string]any{"language": lang, "questions": qs})
	}
}

// ReadyzHandler returns a readiness handler that probes the database and, when configured, Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// OpenAPIServe serves api/openapi.yaml if present.
func (s *Server) OpenAPIServe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile("api/openapi.yaml")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}
