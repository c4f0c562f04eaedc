package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quiz-solver/internal/llm"
	"quiz-solver/internal/quiz"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	demoMarker = "anything you want"
	demoAnswer = "Hello from quiz solver!"
	// resposta usada quando o LLM falha numa pergunta simples
	fallbackAnswer = "test_answer"
)

var ErrNoAnswer = errors.New("llm response has no answer")

// Fetcher é o que o solver precisa do browser.
type Fetcher interface {
	FetchQuizPage(ctx context.Context, url string) (quiz.Page, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	// BaseURL resolve links relativos quando a página não fornece origem.
	BaseURL string
	Logger  logrus.FieldLogger
}

type Solver struct {
	llm     llm.Client
	fetch   Fetcher
	baseURL string
	log     logrus.FieldLogger
}

func New(client llm.Client, fetch Fetcher, opts Options) *Solver {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Solver{
		llm:     client,
		fetch:   fetch,
		baseURL: opts.BaseURL,
		log:     opts.Logger,
	}
}

// Analyze pede ao LLM a leitura estruturada do enunciado. task_type é obrigatório.
func (s *Solver) Analyze(ctx context.Context, question string) (quiz.Analysis, error) {
	s.log.Info("analyzing quiz with LLM")

	res, err := s.llm.CompleteJSON(ctx, analyzeSystem, analyzePrompt(question))
	if err != nil {
		return quiz.Analysis{}, fmt.Errorf("analyze quiz: %w", err)
	}

	a := quiz.Analysis{
		TaskType:     quiz.TaskType(strings.TrimSpace(res.Get("task_type").String())),
		SubmitURL:    strings.TrimSpace(res.Get("submit_url").String()),
		QuizURL:      strings.TrimSpace(res.Get("quiz_url").String()),
		Instructions: res.Get("instructions").String(),
		AnswerFormat: res.Get("answer_format").String(),
	}
	for _, f := range res.Get("files_to_download").Array() {
		if v := strings.TrimSpace(f.String()); v != "" {
			a.FilesToDownload = append(a.FilesToDownload, v)
		}
	}
	if a.TaskType == "" {
		return quiz.Analysis{}, errors.New("analyze quiz: response has no task_type")
	}
	s.log.WithField("task_type", a.TaskType).Info("quiz analysis complete")
	return a, nil
}

// Solve escolhe a estratégia a partir da análise e do conteúdo da página.
func (s *Solver) Solve(ctx context.Context, page quiz.Page, a quiz.Analysis) (any, error) {
	switch {
	case a.TaskType == quiz.TaskWebScraping:
		return s.SolveWithScraping(ctx, page.Question, a)
	case a.TaskType == quiz.TaskPDFExtraction || hasPDF(page.Question):
		return s.SolvePDF(ctx, page)
	case (a.TaskType == quiz.TaskDataAnalysis || a.TaskType == quiz.TaskCalculation) && s.hasCSV(page):
		return s.SolveCSV(ctx, page)
	default:
		return s.SolveSimple(ctx, page.Question, a), nil
	}
}

// SolveSimple nunca falha: erro do LLM vira a resposta de fallback.
func (s *Solver) SolveSimple(ctx context.Context, question string, a quiz.Analysis) any {
	s.log.WithField("task_type", a.TaskType).Info("solving quiz")

	if strings.Contains(strings.ToLower(question), demoMarker) {
		s.log.Info("detected demo quiz, submitting test answer")
		return demoAnswer
	}

	res, err := s.llm.CompleteJSON(ctx, simpleSystem, simplePrompt(question, a.Instructions, a.AnswerFormat))
	if err != nil {
		s.log.WithError(err).Error("error solving quiz")
		return fallbackAnswer
	}
	answer := res.Get("answer").Value()
	s.log.WithField("answer", answer).Info("generated answer")
	return answer
}

func (s *Solver) SolveWithScraping(ctx context.Context, question string, a quiz.Analysis) (any, error) {
	s.log.Info("quiz requires web scraping")

	target, err := s.llm.CompleteJSON(ctx, scrapeSystem, scrapeTargetPrompt(question))
	if err != nil {
		return nil, fmt.Errorf("scrape target: %w", err)
	}
	scrapeURL := strings.TrimSpace(target.Get("scrape_url").String())
	if scrapeURL == "" {
		return nil, errors.New("scrape target: response has no scrape_url")
	}
	if strings.HasPrefix(scrapeURL, "/") {
		scrapeURL = quiz.BaseURL(question, s.baseURL) + scrapeURL
	}
	s.log.WithField("scrape_url", scrapeURL).Info("scraping page")

	page, err := s.fetch.FetchQuizPage(ctx, scrapeURL)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", scrapeURL, err)
	}
	s.log.WithField("preview", quiz.Preview(page.Question, 200)).Info("scraped content")

	res, err := s.llm.CompleteJSON(ctx, extractSystem,
		scrapeExtractPrompt(question, target.Get("what_to_find").String(), page.Question))
	if err != nil {
		return nil, fmt.Errorf("scrape extract: %w", err)
	}
	return requireAnswer(res)
}

// SolveCSV soma os números do CSV referenciado; com "cutoff N" no enunciado,
// soma apenas os valores acima de N.
func (s *Solver) SolveCSV(ctx context.Context, page quiz.Page) (int64, error) {
	s.log.Info("quiz requires CSV analysis")

	csvURL, err := quiz.FindCSVURL(htmlOf(page), page.Question, s.origin(page))
	if err != nil {
		return 0, err
	}
	s.log.WithField("csv_url", csvURL).Info("found CSV file")

	data, err := s.fetch.DownloadFile(ctx, csvURL)
	if err != nil {
		return 0, err
	}

	cutoff, hasCutoff, err := quiz.Cutoff(page.Question)
	if err != nil {
		return 0, err
	}
	sum, n, err := quiz.SumDigits(string(data), cutoff, hasCutoff)
	if err != nil {
		return 0, fmt.Errorf("csv %s: %w", csvURL, err)
	}
	s.log.WithFields(logrus.Fields{
		"numbers":    n,
		"cutoff":     cutoff,
		"has_cutoff": hasCutoff,
		"sum":        sum,
	}).Info("computed CSV answer")
	return sum, nil
}

func (s *Solver) SolvePDF(ctx context.Context, page quiz.Page) (any, error) {
	s.log.Info("quiz requires PDF analysis")

	pdfURL, err := quiz.FindPDFURL(page.Question)
	if err != nil {
		return nil, err
	}
	data, err := s.fetch.DownloadFile(ctx, pdfURL)
	if err != nil {
		return nil, err
	}

	text, pages, err := PDFText(data)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"pages": pages, "preview": quiz.Preview(text, 300)}).Info("extracted PDF text")

	res, err := s.llm.CompleteJSON(ctx, pdfSystem, pdfPrompt(page.Question, text))
	if err != nil {
		return nil, fmt.Errorf("pdf extract: %w", err)
	}
	return requireAnswer(res)
}

func (s *Solver) origin(page quiz.Page) string {
	if o, ok := quiz.Origin(page.QuizURL); ok {
		return o
	}
	return s.baseURL
}

func (s *Solver) hasCSV(page quiz.Page) bool {
	_, err := quiz.FindCSVURL(htmlOf(page), page.Question, s.origin(page))
	return err == nil
}

func hasPDF(text string) bool {
	_, err := quiz.FindPDFURL(text)
	return err == nil
}

func htmlOf(page quiz.Page) string {
	if page.RawHTML != "" {
		return page.RawHTML
	}
	return page.Question
}

func requireAnswer(res gjson.Result) (any, error) {
	v := res.Get("answer")
	if !v.Exists() {
		return nil, ErrNoAnswer
	}
	return v.Value(), nil
}
