// Package llm encapsula as chamadas de chat completion usadas pelo solver.
//
// Todas as chamadas pedem resposta em modo JSON object e temperatura 0; o
// conteúdo é devolvido como gjson.Result para leitura de campos de tipo livre
// (ex.: "answer" pode ser número, string, bool ou objeto).
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"quiz-solver/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrInvalidJSON   = errors.New("llm: response is not a JSON object")
)

// Client é o contrato consumido pelo solver.
type Client interface {
	CompleteJSON(ctx context.Context, system, prompt string) (gjson.Result, error)
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  logrus.FieldLogger
}

type OpenAI struct {
	api   *openai.Client
	model string
	log   logrus.FieldLogger
}

func NewOpenAI(opts Options) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	opts.Logger.WithField("model", opts.Model).Info("llm client initialized")
	return &OpenAI{
		api:   openai.NewClientWithConfig(cfg),
		model: opts.Model,
		log:   opts.Logger,
	}
}

func (c *OpenAI) Model() string { return c.model }

func (c *OpenAI) CompleteJSON(ctx context.Context, system, prompt string) (gjson.Result, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// go-openai omite 0 (omitempty); o menor float32 positivo chega como 0.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		metrics.RecordLLMCall("error")
		return gjson.Result{}, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMCall("empty")
		return gjson.Result{}, ErrEmptyResponse
	}

	res, err := ParseObject(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.RecordLLMCall("invalid")
		return gjson.Result{}, err
	}
	metrics.RecordLLMCall("ok")
	c.log.WithField("tokens", resp.Usage.TotalTokens).Debug("llm completion")
	return res, nil
}

// ParseObject valida que o conteúdo é um objeto JSON.
func ParseObject(content string) (gjson.Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return gjson.Result{}, ErrEmptyResponse
	}
	if !gjson.Valid(content) {
		return gjson.Result{}, ErrInvalidJSON
	}
	res := gjson.Parse(content)
	if !res.IsObject() {
		return gjson.Result{}, ErrInvalidJSON
	}
	return res, nil
}
