// Package openai provides a reasoning solver backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/reasoning"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI solver.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64

	// Instructions maps agent IDs to system prompts. Agents without an
	// entry are invoked without a system message.
	Instructions map[string]string
}

// Solver wraps the OpenAI Chat Completions API behind the core.Solver interface.
type Solver struct {
	client *openai.Client
	opts   Options
}

// NewSolver creates a new OpenAI solver using the official client
func NewSolver(optFns ...func(o *Options)) *Solver {
	client := openai.NewClient()
	return NewSolverFromClient(&client, optFns...)
}

// NewSolverFromClient creates a new OpenAI solver from an existing client
func NewSolverFromClient(client *openai.Client, optFns ...func(o *Options)) *Solver {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Solver{client: client, opts: opts}
}

// Solve implements core.Solver. It renders the task and cues as a prompt,
// calls the Chat Completions API once, and returns the parsed reply.
func (s *Solver) Solve(ctx context.Context, agentID string, task core.Task, cues []core.Cue) (map[string]any, error) {
	prompt := reasoning.BuildPrompt(task, cues)

	var messages []openai.ChatCompletionMessageParamUnion
	if instruction := s.opts.Instructions[agentID]; instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:               s.opts.Model,
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
		Messages:            messages,
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned no choices")
	}

	return reasoning.ParseOutput(resp.Choices[0].Message.Content), nil
}
