// Package submit envia respostas para o endpoint de submissão do quiz.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-solver/internal/quiz"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

type Client struct {
	http *http.Client
	log  logrus.FieldLogger
}

func New(httpClient *http.Client, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{http: httpClient, log: log}
}

// Submit faz POST do JSON {email, secret, url, answer}. Respostas fora de 2xx
// viram erro com status e trecho do corpo.
func (c *Client) Submit(ctx context.Context, submitURL string, sub quiz.Submission) (quiz.SubmitResult, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return quiz.SubmitResult{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return quiz.SubmitResult{}, fmt.Errorf("submit %s: %w", submitURL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return quiz.SubmitResult{}, fmt.Errorf("submit %s: %w", submitURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return quiz.SubmitResult{}, fmt.Errorf("submit %s: read response: %w", submitURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return quiz.SubmitResult{}, fmt.Errorf("submit %s: HTTP %d: %s", submitURL, resp.StatusCode, snippet(body))
	}
	if !gjson.ValidBytes(body) {
		return quiz.SubmitResult{}, fmt.Errorf("submit %s: invalid JSON response: %s", submitURL, snippet(body))
	}

	res := gjson.ParseBytes(body)
	out := quiz.SubmitResult{
		Correct: res.Get("correct").Bool(),
		NextURL: strings.TrimSpace(res.Get("url").String()),
		Reason:  res.Get("reason").String(),
	}
	c.log.WithFields(logrus.Fields{
		"submit_url": submitURL,
		"correct":    out.Correct,
		"next_url":   out.NextURL,
	}).Info("answer submitted")
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
