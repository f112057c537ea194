// Package anthropic provides a reasoning solver backed by the Anthropic
// Claude Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/reasoning"
)

// Options configures the Anthropic solver (temperature, model id, max
// tokens, API key, per-agent instructions). Extend via functional options to
// preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string

	// Instructions maps agent IDs to system prompts. Agents without an
	// entry are invoked without a system block.
	Instructions map[string]string
}

// Solver wraps the Anthropic Messages API behind the core.Solver interface.
type Solver struct {
	client *anthropic.Client
	opts   Options
}

// NewSolver creates a new Anthropic solver using the official client
func NewSolver(optFns ...func(o *Options)) *Solver {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Solver{
		client: &client,
		opts:   opts,
	}
}

// NewSolverFromClient creates a new Anthropic solver from an existing client
func NewSolverFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Solver {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Solver{
		client: client,
		opts:   opts,
	}
}

// Solve implements core.Solver. It renders the task and cues as a prompt,
// calls the Messages API once, and returns the parsed reply.
func (s *Solver) Solve(ctx context.Context, agentID string, task core.Task, cues []core.Cue) (map[string]any, error) {
	prompt := reasoning.BuildPrompt(task, cues)

	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if instruction := s.opts.Instructions[agentID]; instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: instruction}}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			textBlock := block.AsText()
			sb.WriteString(textBlock.Text)
		}
	}

	return reasoning.ParseOutput(sb.String()), nil
}
