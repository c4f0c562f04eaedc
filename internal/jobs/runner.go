package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"quiz-solver/internal/metrics"
	"quiz-solver/internal/quiz"
	"quiz-solver/internal/stats"
	"quiz-solver/internal/throttle"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type PageFetcher interface {
	FetchQuizPage(ctx context.Context, url string) (quiz.Page, error)
}

type PageSolver interface {
	Analyze(ctx context.Context, question string) (quiz.Analysis, error)
	Solve(ctx context.Context, page quiz.Page, a quiz.Analysis) (any, error)
}

type Submitter interface {
	Submit(ctx context.Context, submitURL string, sub quiz.Submission) (quiz.SubmitResult, error)
}

type Deps struct {
	Store   Store
	Stats   stats.Store
	Fetcher PageFetcher
	Solver  PageSolver
	Submit  Submitter
	Logger  logrus.FieldLogger
}

type Options struct {
	Concurrency int
	// MaxQueued limita jobs pendentes + em execução; acima disso Enqueue
	// devolve ErrBusy.
	MaxQueued int
	Deadline  time.Duration
	MaxSteps  int
}

type Runner struct {
	deps Deps
	opts Options
	pool throttle.SlotPool
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int64

	mu     sync.Mutex
	closed bool
}

func NewRunner(deps Deps, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxQueued <= 0 {
		opts.MaxQueued = opts.Concurrency * 16
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 3 * time.Minute
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 20
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		deps:   deps,
		opts:   opts,
		pool:   throttle.NewPool(opts.Concurrency),
		log:    deps.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue registra o job como pending e dispara a execução em background.
func (r *Runner) Enqueue(ctx context.Context, req quiz.Request) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Job{}, ErrClosed
	}
	if r.active.Load() >= int64(r.opts.MaxQueued) {
		return Job{}, ErrBusy
	}

	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Email:     req.Email,
		URL:       req.URL,
		Status:    StatusPending,
		Steps:     []Step{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.deps.Store.Save(ctx, job); err != nil {
		return Job{}, fmt.Errorf("save job: %w", err)
	}

	r.active.Add(1)
	r.wg.Add(1)
	go r.run(job, req)
	return job, nil
}

func (r *Runner) Get(ctx context.Context, id string) (Job, error) {
	return r.deps.Store.Get(ctx, id)
}

// Active retorna jobs pendentes ou em execução.
func (r *Runner) Active() int { return int(r.active.Load()) }

// Shutdown cancela os jobs em andamento e espera terminarem (ou o ctx expirar).
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(job Job, req quiz.Request) {
	defer r.wg.Done()
	defer r.active.Add(-1)

	log := r.log.WithFields(logrus.Fields{"job_id": job.ID, "email": job.Email})

	release, ok := r.pool.Acquire(r.ctx)
	if !ok {
		r.finish(log, &job, ErrClosed)
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.Deadline)
	defer cancel()

	job.Status = StatusRunning
	r.save(log, &job)
	log.WithField("url", job.URL).Info("job started")

	var err error
	url := job.URL
	for n := 0; url != ""; n++ {
		if n >= r.opts.MaxSteps {
			err = ErrMaxSteps
			break
		}
		// prazo vencido entre passos não abre outra página
		if err = ctx.Err(); err != nil {
			break
		}

		var res quiz.SubmitResult
		var st Step
		res, st, err = r.step(ctx, log, req, url)
		job.Steps = append(job.Steps, st)
		r.save(log, &job)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
				err = fmt.Errorf("%w: %w", cerr, err)
			}
			break
		}
		url = res.NextURL
	}
	r.finish(log, &job, err)
}

func (r *Runner) step(ctx context.Context, log logrus.FieldLogger, req quiz.Request, url string) (quiz.SubmitResult, Step, error) {
	st := Step{URL: url, StartedAt: time.Now().UTC()}
	log = log.WithField("quiz_url", url)

	res, err := r.solveOne(ctx, log, req, &st)
	st.FinishedAt = time.Now().UTC()

	outcome := "error"
	switch {
	case err != nil:
		st.Error = err.Error()
		log.WithError(err).Error("quiz step failed")
	case res.Correct:
		outcome = string(stats.OutcomeCorrect)
		r.record(ctx, req.Email, stats.OutcomeCorrect)
	default:
		outcome = string(stats.OutcomeIncorrect)
		r.record(ctx, req.Email, stats.OutcomeIncorrect)
		log.WithField("reason", res.Reason).Warn("answer marked incorrect")
	}
	metrics.RecordStep(string(st.TaskType), outcome, st.FinishedAt.Sub(st.StartedAt))
	return res, st, err
}

func (r *Runner) solveOne(ctx context.Context, log logrus.FieldLogger, req quiz.Request, st *Step) (quiz.SubmitResult, error) {
	page, err := r.deps.Fetcher.FetchQuizPage(ctx, st.URL)
	if err != nil {
		return quiz.SubmitResult{}, err
	}

	analysis, err := r.deps.Solver.Analyze(ctx, page.Question)
	if err != nil {
		return quiz.SubmitResult{}, err
	}
	st.TaskType = analysis.TaskType

	answer, err := r.deps.Solver.Solve(ctx, page, analysis)
	if err != nil {
		return quiz.SubmitResult{}, err
	}
	st.Answer = answer

	submitURL := page.SubmitURL
	if submitURL == "" {
		submitURL = analysis.SubmitURL
	}
	if submitURL == "" {
		return quiz.SubmitResult{}, quiz.ErrNoSubmitURL
	}
	st.SubmitURL = submitURL
	log.WithFields(logrus.Fields{"task_type": analysis.TaskType, "submit_url": submitURL}).Info("submitting answer")

	res, err := r.deps.Submit.Submit(ctx, submitURL, quiz.Submission{
		Email:  req.Email,
		Secret: req.Secret,
		URL:    st.URL,
		Answer: answer,
	})
	if err != nil {
		return quiz.SubmitResult{}, err
	}
	st.Correct = res.Correct
	st.Reason = res.Reason
	return res, nil
}

func (r *Runner) finish(log logrus.FieldLogger, job *Job, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("solve deadline exceeded: %w", err)
	}

	outcome := stats.OutcomeSolved
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		outcome = stats.OutcomeFailed
		log.WithError(err).Error("job failed")
	} else {
		job.Status = StatusCompleted
		log.WithField("steps", len(job.Steps)).Info("job completed")
	}
	r.save(log, job)
	metrics.RecordJob(string(job.Status))
	// ctx do runner pode já estar cancelado no shutdown
	r.record(context.WithoutCancel(r.ctx), job.Email, outcome)
}

func (r *Runner) save(log logrus.FieldLogger, job *Job) {
	job.UpdatedAt = time.Now().UTC()
	// estado final precisa ser gravado mesmo após o cancelamento
	if err := r.deps.Store.Save(context.WithoutCancel(r.ctx), *job); err != nil {
		log.WithError(err).Warn("job save failed")
	}
}

func (r *Runner) record(ctx context.Context, email string, outcome stats.Outcome) {
	if r.deps.Stats == nil {
		return
	}
	if err := r.deps.Stats.Record(context.WithoutCancel(ctx), stats.Event{Key: email, Outcome: outcome, At: time.Now()}); err != nil {
		r.log.WithError(err).Debug("job stats record failed")
	}
}
