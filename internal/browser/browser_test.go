package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsResultPage = `<!doctype html>
<html><body>
<div id="loading">Loading quiz...</div>
<script>
setTimeout(function () {
  var d = document.createElement('div');
  d.id = 'result';
  d.textContent = 'Q834. Sum the values and POST to https://quiz.example/submit?id=834.';
  document.body.appendChild(d);
}, 20);
</script>
</body></html>`

const plainPage = `<!doctype html>
<html><body>
<h1>Plain quiz</h1>
<p>Answer anything and send it to https://quiz.example/submit</p>
</body></html>`

func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	found := false
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no headless Chromium on PATH")
	}

	log, _ := test.NewNullLogger()
	b := New(Options{
		NavTimeout:    15 * time.Second,
		Settle:        200 * time.Millisecond,
		ResultTimeout: time.Second,
		Logger:        log,
	})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func quizServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(jsResultPage))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(plainPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchQuizPage_ReadsScriptRenderedResult(t *testing.T) {
	b := newTestBrowser(t)
	srv := quizServer(t)

	page, err := b.FetchQuizPage(context.Background(), srv.URL+"/js")
	require.NoError(t, err)

	assert.Contains(t, page.Question, "Q834")
	assert.NotContains(t, page.Question, "Loading quiz")
	assert.Equal(t, "https://quiz.example/submit?id=834", page.SubmitURL)
	assert.Equal(t, srv.URL+"/js", page.QuizURL)
	assert.Contains(t, page.RawHTML, "loading")
}

func TestFetchQuizPage_FallsBackToBodyText(t *testing.T) {
	b := newTestBrowser(t)
	srv := quizServer(t)

	start := time.Now()
	page, err := b.FetchQuizPage(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)

	// só cai no body depois de esperar o #result
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Contains(t, page.Question, "Plain quiz")
	assert.Equal(t, "https://quiz.example/submit", page.SubmitURL)
}

func TestFetchQuizPage_CancelledContext(t *testing.T) {
	b := newTestBrowser(t)
	srv := quizServer(t)
	require.NoError(t, b.Start())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.FetchQuizPage(ctx, srv.URL+"/plain")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchQuizPage_RestartsAfterBrowserDies(t *testing.T) {
	b := newTestBrowser(t)
	srv := quizServer(t)
	require.NoError(t, b.Start())

	// derruba o processo por fora, como um crash
	b.mu.Lock()
	b.browserCancel()
	b.mu.Unlock()

	page, err := b.FetchQuizPage(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Contains(t, page.Question, "Plain quiz")
}
