package quiz

import "errors"

type TaskType string

const (
	TaskDataAnalysis  TaskType = "data_analysis"
	TaskPDFExtraction TaskType = "pdf_extraction"
	TaskWebScraping   TaskType = "web_scraping"
	TaskVisualization TaskType = "visualization"
	TaskCalculation   TaskType = "calculation"
	TaskTextQuestion  TaskType = "text_question"
)

var (
	ErrNoCSVURL    = errors.New("no CSV URL found in quiz")
	ErrNoPDFURL    = errors.New("no PDF URL found in quiz")
	ErrNoSubmitURL = errors.New("no submit URL found in quiz")
	// ErrOverflow: número do quiz ou soma fora de int64.
	ErrOverflow = errors.New("number out of int64 range")
)

// Request é o payload recebido em POST /solve.
type Request struct {
	Email  string `json:"email"`
	Secret string `json:"-"`
	URL    string `json:"url"`
}

// Page é o resultado de renderizar uma página de quiz.
type Page struct {
	Question  string
	SubmitURL string
	RawHTML   string
	QuizURL   string
}

// Analysis é a leitura estruturada do enunciado feita pelo LLM.
type Analysis struct {
	TaskType        TaskType `json:"task_type"`
	FilesToDownload []string `json:"files_to_download"`
	SubmitURL       string   `json:"submit_url"`
	QuizURL         string   `json:"quiz_url"`
	Instructions    string   `json:"instructions"`
	AnswerFormat    string   `json:"answer_format"`
}

type Submission struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer any    `json:"answer"`
}

// SubmitResult é a resposta do endpoint de submissão.
// NextURL vazio encerra a cadeia de quizzes.
type SubmitResult struct {
	Correct bool   `json:"correct"`
	NextURL string `json:"url,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
