package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sql-helper/internal/ai"
	"sql-helper/internal/logger"
	"sql-helper/internal/metrics"
	"sql-helper/internal/pkg/errors"

	"github.com/sirupsen/logrus"
)

type TaskType string

const (
	TaskFormat  TaskType = "format"
	TaskExplain TaskType = "explain"
	TaskORM     TaskType = "orm"
	TaskDebug   TaskType = "debug"
	TaskRewrite TaskType = "rewrite"
)

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

const (
	ModelStandard = "gpt-3.5-turbo"
	ModelAdvanced = "gpt-4-0125-preview"

	assistantTemperature = 0.3
)

func ParseTask(s string) (TaskType, bool) {
	switch t := TaskType(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskFormat, TaskExplain, TaskORM, TaskDebug, TaskRewrite:
		return t, true
	}
	return "", false
}

// SelectModel picks the cheaper model unless the task needs deeper reasoning.
func SelectModel(task TaskType, complexity Complexity) string {
	switch task {
	case TaskFormat:
		return ModelStandard
	case TaskExplain, TaskORM:
		if complexity == ComplexityComplex {
			return ModelAdvanced
		}
		return ModelStandard
	case TaskDebug, TaskRewrite:
		return ModelAdvanced
	default:
		return ModelStandard
	}
}

func SystemPrompt(task TaskType, dialect string) string {
	switch task {
	case TaskFormat:
		return fmt.Sprintf("You are a SQL formatting expert for %s. Format the given SQL query to be more readable and follow %s best practices. Only return the formatted SQL without any explanations.", dialect, dialect)
	case TaskExplain:
		return fmt.Sprintf("Explain what the given %s query does in plain language, step by step, for a developer who did not write it.", dialect)
	case TaskORM:
		return "Convert the given SQL query into equivalent Prisma ORM code. Only return the code."
	case TaskDebug:
		return fmt.Sprintf("Analyze the given %s query and any error message for syntax or logic errors and suggest how to fix them.", dialect)
	case TaskRewrite:
		return fmt.Sprintf("Rewrite the given %s query so it returns the same result but is clearer or faster. Return the rewritten SQL followed by a short note on what changed.", dialect)
	}
	return ""
}

// Completer is the model call behind the assistant.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (*ai.Response, error)
}

type AssistRequest struct {
	Identity   string
	Task       TaskType
	Dialect    string
	Input      string
	Complexity Complexity
}

type AssistResult struct {
	Text     string         `json:"text"`
	Model    string         `json:"model"`
	Usage    ai.Usage       `json:"usage"`
	Decision *QuotaDecision `json:"-"`
}

type AssistantService interface {
	Assist(ctx context.Context, req AssistRequest) (*AssistResult, error)
}

type assistantService struct {
	completer Completer
	gate      Gate
}

func NewAssistantService(completer Completer, gate Gate) AssistantService {
	return &assistantService{completer: completer, gate: gate}
}

// Assist authorizes against the quota, runs the completion, then records
// the reported tokens. A failed completion records nothing.
func (s *assistantService) Assist(ctx context.Context, req AssistRequest) (*AssistResult, error) {
	if req.Identity == "" {
		return nil, errors.ErrInvalidToken
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "SQL query is required")
	}
	if req.Dialect == "" {
		req.Dialect = "sql"
	}

	model := SelectModel(req.Task, req.Complexity)

	decision, err := s.gate.Authorize(ctx, req.Identity)
	if err != nil {
		metrics.AssistantCalls.WithLabelValues(string(req.Task), model, "denied").Inc()
		return nil, err
	}

	start := time.Now()
	resp, err := s.completer.Complete(ctx, ai.Request{
		Model:       model,
		System:      SystemPrompt(req.Task, req.Dialect),
		Prompt:      req.Input,
		Temperature: assistantTemperature,
	})
	metrics.AssistantLatency.WithLabelValues(string(req.Task), model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssistantCalls.WithLabelValues(string(req.Task), model, "error").Inc()
		logger.LogEvent(logrus.ErrorLevel, "assistant.failed", logrus.Fields{
			"identity": req.Identity,
			"task":     req.Task,
			"model":    model,
			"error":    err.Error(),
		})
		return nil, err
	}
	metrics.AssistantCalls.WithLabelValues(string(req.Task), model, "success").Inc()

	if spent := resp.Usage.PromptTokens + resp.Usage.CompletionTokens; spent > 0 {
		if err := s.gate.Record(ctx, req.Identity, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); err != nil {
			// Usage is lost; the answer is still returned.
			logger.LogEvent(logrus.ErrorLevel, "assistant.record_failed", logrus.Fields{
				"identity": req.Identity,
				"tokens":   spent,
				"error":    err.Error(),
			})
		}
	}

	logger.LogEvent(logrus.InfoLevel, "assistant.completed", logrus.Fields{
		"identity":          req.Identity,
		"task":              req.Task,
		"model":             model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"remaining_before":  decision.Remaining,
	})

	if resp.Model != "" {
		model = resp.Model
	}
	return &AssistResult{
		Text:     resp.Text,
		Model:    model,
		Usage:    resp.Usage,
		Decision: &decision,
	}, nil
}
