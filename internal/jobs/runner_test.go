package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-solver/internal/quiz"
	"quiz-solver/internal/stats"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]quiz.Page
	block chan struct{}
}

func (f *fakeFetcher) FetchQuizPage(ctx context.Context, url string) (quiz.Page, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return quiz.Page{}, ctx.Err()
		}
	}
	p, ok := f.pages[url]
	if !ok {
		return quiz.Page{}, errors.New("not found: " + url)
	}
	return p, nil
}

type fakeSolver struct {
	answers map[string]any
}

func (s *fakeSolver) Analyze(_ context.Context, question string) (quiz.Analysis, error) {
	return quiz.Analysis{TaskType: quiz.TaskTextQuestion, SubmitURL: "https://quiz.example/submit-fallback"}, nil
}

func (s *fakeSolver) Solve(_ context.Context, page quiz.Page, _ quiz.Analysis) (any, error) {
	return s.answers[page.Question], nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	results map[string]quiz.SubmitResult
	got     []quiz.Submission
	urls    []string
}

func (s *fakeSubmitter) Submit(_ context.Context, submitURL string, sub quiz.Submission) (quiz.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, sub)
	s.urls = append(s.urls, submitURL)
	return s.results[sub.URL], nil
}

func newRunner(t *testing.T, f PageFetcher, sv PageSolver, sub Submitter, st stats.Store, opts Options) *Runner {
	t.Helper()
	log, _ := test.NewNullLogger()
	r := NewRunner(Deps{Fetcher: f, Solver: sv, Submit: sub, Stats: st, Logger: log}, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

func waitFinal(t *testing.T, r *Runner, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = r.Get(context.Background(), id)
		require.NoError(t, err)
		return job.Status == StatusCompleted || job.Status == StatusFailed
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestRunner_FollowsChainUntilNoNextURL(t *testing.T) {
	f := &fakeFetcher{pages: map[string]quiz.Page{
		"https://quiz.example/q1": {Question: "q1", SubmitURL: "https://quiz.example/submit"},
		"https://quiz.example/q2": {Question: "q2"},
	}}
	sv := &fakeSolver{answers: map[string]any{"q1": 42, "q2": "done"}}
	sub := &fakeSubmitter{results: map[string]quiz.SubmitResult{
		"https://quiz.example/q1": {Correct: true, NextURL: "https://quiz.example/q2"},
		"https://quiz.example/q2": {Correct: false, Reason: "nope"},
	}}
	st := stats.NewMemoryStore()
	r := newRunner(t, f, sv, sub, st, Options{Concurrency: 2})

	job, err := r.Enqueue(context.Background(), quiz.Request{Email: "a@b.c", Secret: "s", URL: "https://quiz.example/q1"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.NotEmpty(t, job.ID)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	require.Len(t, final.Steps, 2)
	assert.True(t, final.Steps[0].Correct)
	assert.Equal(t, 42, final.Steps[0].Answer)
	assert.Equal(t, quiz.TaskTextQuestion, final.Steps[0].TaskType)
	assert.False(t, final.Steps[1].Correct)
	assert.Equal(t, "nope", final.Steps[1].Reason)

	require.Len(t, sub.got, 2)
	assert.Equal(t, "s", sub.got[0].Secret)
	assert.Equal(t, "https://quiz.example/q2", sub.got[1].URL)
	// página sem submit URL usa a da análise
	assert.Equal(t, []string{"https://quiz.example/submit", "https://quiz.example/submit-fallback"}, sub.urls)

	require.Eventually(t, func() bool { return st.Total()[stats.OutcomeSolved] == 1 }, time.Second, 5*time.Millisecond)
	total := st.Total()
	assert.Equal(t, int64(1), total[stats.OutcomeCorrect])
	assert.Equal(t, int64(1), total[stats.OutcomeIncorrect])
}

type noSubmitSolver struct{ fakeSolver }

func (s *noSubmitSolver) Analyze(context.Context, string) (quiz.Analysis, error) {
	return quiz.Analysis{TaskType: quiz.TaskCalculation}, nil
}

func TestRunner_FailsWithoutSubmitURL(t *testing.T) {
	f := &fakeFetcher{pages: map[string]quiz.Page{"https://quiz.example/q1": {Question: "q1"}}}
	r := newRunner(t, f, &noSubmitSolver{}, &fakeSubmitter{}, nil, Options{})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/q1"})
	require.NoError(t, err)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "no submit URL")
	require.Len(t, final.Steps, 1)
	assert.NotEmpty(t, final.Steps[0].Error)
}

func TestRunner_StopsAtMaxSteps(t *testing.T) {
	f := &fakeFetcher{pages: map[string]quiz.Page{"https://quiz.example/loop": {Question: "loop", SubmitURL: "https://quiz.example/submit"}}}
	sub := &fakeSubmitter{results: map[string]quiz.SubmitResult{
		"https://quiz.example/loop": {Correct: true, NextURL: "https://quiz.example/loop"},
	}}
	r := newRunner(t, f, &fakeSolver{}, sub, nil, Options{MaxSteps: 3})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/loop"})
	require.NoError(t, err)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Len(t, final.Steps, 3)
	assert.Contains(t, final.Error, ErrMaxSteps.Error())
}

func TestRunner_DeadlineFailsJob(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	r := newRunner(t, f, &fakeSolver{}, &fakeSubmitter{}, nil, Options{Deadline: 20 * time.Millisecond})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/slow"})
	require.NoError(t, err)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "deadline")
}

// tabFetcher falha como o navegador quando o ctx já morreu: erro opaco, sem
// embrulhar ctx.Err().
type tabFetcher struct{ fakeFetcher }

func (f *tabFetcher) FetchQuizPage(ctx context.Context, url string) (quiz.Page, error) {
	if ctx.Err() != nil {
		return quiz.Page{}, errors.New("open tab: context canceled")
	}
	return f.fakeFetcher.FetchQuizPage(ctx, url)
}

type slowSubmitter struct {
	fakeSubmitter
	delay time.Duration
}

func (s *slowSubmitter) Submit(ctx context.Context, submitURL string, sub quiz.Submission) (quiz.SubmitResult, error) {
	time.Sleep(s.delay)
	return s.fakeSubmitter.Submit(ctx, submitURL, sub)
}

func TestRunner_DeadlineBetweenStepsReportsDeadline(t *testing.T) {
	f := &tabFetcher{fakeFetcher{pages: map[string]quiz.Page{
		"https://quiz.example/q1": {Question: "q1", SubmitURL: "https://quiz.example/submit"},
		"https://quiz.example/q2": {Question: "q2", SubmitURL: "https://quiz.example/submit"},
	}}}
	sub := &slowSubmitter{
		fakeSubmitter: fakeSubmitter{results: map[string]quiz.SubmitResult{
			"https://quiz.example/q1": {Correct: true, NextURL: "https://quiz.example/q2"},
		}},
		delay: 80 * time.Millisecond,
	}
	r := newRunner(t, f, &fakeSolver{}, sub, nil, Options{Deadline: 30 * time.Millisecond})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/q1"})
	require.NoError(t, err)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "solve deadline exceeded")
	assert.NotContains(t, final.Error, "open tab")
	require.Len(t, final.Steps, 1)
	assert.Empty(t, final.Steps[0].Error)
}

func TestRunner_StepErrorAfterDeadlineKeepsCause(t *testing.T) {
	slow := &slowFetcher{inner: &tabFetcher{}, delay: 60 * time.Millisecond}
	r := newRunner(t, slow, &fakeSolver{}, &fakeSubmitter{}, nil, Options{Deadline: 20 * time.Millisecond})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/q1"})
	require.NoError(t, err)

	final := waitFinal(t, r, job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "solve deadline exceeded")
	assert.Contains(t, final.Error, "open tab")
}

// slowFetcher espera delay ignorando o ctx e só então delega.
type slowFetcher struct {
	inner PageFetcher
	delay time.Duration
}

func (f *slowFetcher) FetchQuizPage(ctx context.Context, url string) (quiz.Page, error) {
	time.Sleep(f.delay)
	return f.inner.FetchQuizPage(ctx, url)
}

func TestRunner_BusyWhenQueueFull(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	r := newRunner(t, f, &fakeSolver{}, &fakeSubmitter{}, nil, Options{Concurrency: 1, MaxQueued: 1, Deadline: time.Minute})

	_, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/a"})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Active())

	_, err = r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/b"})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunner_ShutdownCancelsAndRejects(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	log, _ := test.NewNullLogger()
	r := NewRunner(Deps{Fetcher: f, Solver: &fakeSolver{}, Submit: &fakeSubmitter{}, Logger: log}, Options{Deadline: time.Minute})

	job, err := r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	final, err := r.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, 0, r.Active())

	_, err = r.Enqueue(context.Background(), quiz.Request{URL: "https://quiz.example/b"})
	assert.ErrorIs(t, err, ErrClosed)
}
