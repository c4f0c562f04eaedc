package jobs

import (
	"context"
	"errors"
	"time"

	"quiz-solver/internal/quiz"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrBusy     = errors.New("solver busy")
	ErrClosed   = errors.New("runner is shutting down")
	ErrMaxSteps = errors.New("max quiz steps reached")
)

type Step struct {
	URL        string        `json:"url"`
	TaskType   quiz.TaskType `json:"task_type,omitempty"`
	SubmitURL  string        `json:"submit_url,omitempty"`
	Answer     any           `json:"answer,omitempty"`
	Correct    bool          `json:"correct"`
	Reason     string        `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

type Job struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	Steps     []Step    `json:"steps"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j Job) clone() Job {
	steps := make([]Step, len(j.Steps))
	copy(steps, j.Steps)
	j.Steps = steps
	return j
}

// Store persiste o estado dos jobs. Get devolve ErrNotFound para ids desconhecidos.
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
}
