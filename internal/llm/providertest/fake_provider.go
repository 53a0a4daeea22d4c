// Package providertest provides a scripted LLM provider for tests.
package providertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

type script struct {
	match     string
	responses []*shared.CompletionResponse
	next      int
}

// FakeProvider implements LLMProvider for testing purposes. Responses are
// selected by substring match against the first user message; each match
// replays its responses in order and then repeats the last one.
type FakeProvider struct {
	mu          sync.Mutex
	scripts     []*script
	errors      map[string]error
	delays      map[string]time.Duration
	callCount   int
	requests    []*shared.CompletionRequest
	lastRequest *shared.CompletionRequest
}

// NewFakeProvider creates a new fake provider for testing
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		errors: make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

// AddResponses queues responses for prompts containing match
func (fp *FakeProvider) AddResponses(match string, responses ...*shared.CompletionResponse) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.scripts = append(fp.scripts, &script{match: match, responses: responses})
}

// AddError makes prompts containing match fail with err
func (fp *FakeProvider) AddError(match string, err error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.errors[match] = err
}

// AddDelay delays prompts containing match
func (fp *FakeProvider) AddDelay(match string, delay time.Duration) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.delays[match] = delay
}

// GetCallCount returns the number of calls made to the provider
func (fp *FakeProvider) GetCallCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.callCount
}

// GetLastRequest returns the last request made to the provider
func (fp *FakeProvider) GetLastRequest() *shared.CompletionRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastRequest
}

// Requests returns every request seen so far
func (fp *FakeProvider) Requests() []*shared.CompletionRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	out := make([]*shared.CompletionRequest, len(fp.requests))
	copy(out, fp.requests)
	return out
}

// Name returns the provider name
func (fp *FakeProvider) Name() string { return "fake" }

// Complete performs a mock completion request
func (fp *FakeProvider) Complete(ctx context.Context, req *shared.CompletionRequest) (*shared.CompletionResponse, error) {
	key := firstUserMessage(req)

	fp.mu.Lock()
	fp.callCount++
	fp.lastRequest = req
	fp.requests = append(fp.requests, req)

	var delay time.Duration
	for match, d := range fp.delays {
		if strings.Contains(key, match) {
			delay = d
		}
	}
	var failure error
	for match, err := range fp.errors {
		if strings.Contains(key, match) {
			failure = err
		}
	}
	var resp *shared.CompletionResponse
	for _, s := range fp.scripts {
		if strings.Contains(key, s.match) && len(s.responses) > 0 {
			resp = s.responses[s.next]
			if s.next < len(s.responses)-1 {
				s.next++
			}
			break
		}
	}
	fp.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failure != nil {
		return nil, failure
	}
	if resp != nil {
		return resp, nil
	}

	return &shared.CompletionResponse{
		Content: fmt.Sprintf("Mock response for: %s", key),
		Usage: shared.TokenUsage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		StopReason: "stop",
	}, nil
}

func firstUserMessage(req *shared.CompletionRequest) string {
	if req == nil {
		return ""
	}
	for _, msg := range req.Messages {
		if msg.Role == shared.RoleUser && msg.Content != "" {
			return msg.Content
		}
	}
	return ""
}
