package provider

import (
	"context"
	"errors"
	"sync"
)

// Step is one scripted reply: either Content or Err.
type Step struct {
	Content string
	Err     error
	Usage   Usage
}

// Scripted replays queued steps in order, then keeps repeating Fallback.
// It backs the "scripted" provider kind used for local runs and tests.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	Fallback Step
	ModelID  string
	Prompts  []string
}

// NewScripted returns a provider that answers with steps, in order.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps, ModelID: "scripted-1", Fallback: Step{Err: errors.New("scripted: no more replies")}}
}

// Push appends steps to the queue.
func (s *Scripted) Push(steps ...Step) {
	s.mu.Lock()
	s.steps = append(s.steps, steps...)
	s.mu.Unlock()
}

// Calls returns how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

func (s *Scripted) Name() string  { return "scripted" }
func (s *Scripted) Model() string { return s.ModelID }

func (s *Scripted) Complete(ctx context.Context, req Request) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	s.mu.Lock()
	s.Prompts = append(s.Prompts, req.Prompt)
	step := s.Fallback
	if len(s.steps) > 0 {
		step, s.steps = s.steps[0], s.steps[1:]
	}
	s.mu.Unlock()

	if step.Err != nil {
		return Completion{}, step.Err
	}
	return Completion{Content: step.Content, Model: s.ModelID, Usage: step.Usage}, nil
}
