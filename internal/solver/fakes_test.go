package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"quiz-solver/internal/llm"
	"quiz-solver/internal/quiz"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tidwall/gjson"
)

type llmCall struct {
	System string
	Prompt string
}

// fakeLLM responde por system prompt.
type fakeLLM struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     []llmCall
}

func (f *fakeLLM) CompleteJSON(_ context.Context, system, prompt string) (gjson.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{System: system, Prompt: prompt})
	if f.err != nil {
		return gjson.Result{}, f.err
	}
	content, ok := f.responses[system]
	if !ok {
		return gjson.Result{}, fmt.Errorf("unexpected system prompt %q", system)
	}
	return llm.ParseObject(content)
}

type fakeFetcher struct {
	pages     map[string]quiz.Page
	files     map[string][]byte
	fetched   []string
	downloads []string
}

func (f *fakeFetcher) FetchQuizPage(_ context.Context, url string) (quiz.Page, error) {
	f.fetched = append(f.fetched, url)
	p, ok := f.pages[url]
	if !ok {
		return quiz.Page{}, errors.New("page not found: " + url)
	}
	return p, nil
}

func (f *fakeFetcher) DownloadFile(_ context.Context, url string) ([]byte, error) {
	f.downloads = append(f.downloads, url)
	b, ok := f.files[url]
	if !ok {
		return nil, errors.New("failed to download file: HTTP 404")
	}
	return b, nil
}

func newTestSolver(t *testing.T, l llm.Client, f Fetcher) *Solver {
	t.Helper()
	log, _ := test.NewNullLogger()
	return New(l, f, Options{BaseURL: "https://fallback.example", Logger: log})
}

// minimalPDF monta um PDF de uma página com xref correto.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
