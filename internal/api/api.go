// Package api monta o roteador HTTP do solver.
//
// Rotas:
//
//	GET  /           status do serviço
//	GET  /health     health check
//	POST /solve      recebe uma tarefa de quiz (email, secret, url)
//	GET  /jobs/{id}  estado de um job
//	GET  /metrics    métricas Prometheus
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"quiz-solver/internal/httputil"
	"quiz-solver/internal/jobs"
	"quiz-solver/internal/metrics"
	"quiz-solver/internal/quiz"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const maxBody = 1 << 20

// Jobs é o que o servidor precisa do runner.
type Jobs interface {
	Enqueue(ctx context.Context, req quiz.Request) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, error)
}

type Options struct {
	Secret string
	Email  string
	Jobs   Jobs
	Logger logrus.FieldLogger
	// SolveMiddleware envolve apenas POST /solve (rate limit, concorrência).
	SolveMiddleware []func(http.Handler) http.Handler
}

type Server struct {
	secret []byte
	email  string
	jobs   Jobs
	log    logrus.FieldLogger
}

func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	s := &Server{
		secret: []byte(opts.Secret),
		email:  opts.Email,
		jobs:   opts.Jobs,
		log:    opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.With(opts.SolveMiddleware...).Post("/solve", s.handleSolve)
	r.Get("/jobs/{id}", s.handleJob)
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "LLM Quiz Solver API is active",
		"email":   s.email,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil || !gjson.ValidBytes(body) {
		s.log.WithError(err).Error("invalid JSON")
		httputil.Detail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		s.log.Error("invalid JSON: payload is not an object")
		httputil.Detail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	req, ok := parseRequest(doc)
	if !ok {
		s.log.Error("validation error: missing or non-string fields")
		httputil.Detail(w, http.StatusBadRequest, "Missing required fields: email, secret, url")
		return
	}
	log := s.log.WithFields(logrus.Fields{"email": req.Email, "url": req.URL})
	log.Info("received request")

	if subtle.ConstantTimeCompare([]byte(req.Secret), s.secret) != 1 {
		log.Warn("invalid secret provided")
		httputil.Detail(w, http.StatusForbidden, "Invalid secret")
		return
	}
	if req.Email != s.email {
		log.WithField("expected", s.email).Warn("email mismatch")
		httputil.Detail(w, http.StatusForbidden, "Invalid email")
		return
	}

	job, err := s.jobs.Enqueue(r.Context(), req)
	switch {
	case errors.Is(err, jobs.ErrBusy), errors.Is(err, jobs.ErrClosed):
		log.WithError(err).Warn("solve rejected")
		httputil.Detail(w, http.StatusServiceUnavailable, "Solver busy")
		return
	case err != nil:
		log.WithError(err).Error("enqueue failed")
		httputil.Detail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.WithField("job_id", job.ID).Info("valid request received, quiz solving started")

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "received",
		"message": "Quiz task received successfully",
		"url":     req.URL,
		"job_id":  job.ID,
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		httputil.Detail(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("job lookup failed")
		httputil.Detail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// parseRequest exige os três campos presentes e do tipo string.
func parseRequest(doc gjson.Result) (quiz.Request, bool) {
	fields := gjson.GetMany(doc.Raw, "email", "secret", "url")
	for _, f := range fields {
		if f.Type != gjson.String {
			return quiz.Request{}, false
		}
	}
	return quiz.Request{
		Email:  fields[0].String(),
		Secret: fields[1].String(),
		URL:    fields[2].String(),
	}, true
}
