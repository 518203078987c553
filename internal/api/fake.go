package api

import (
	"chess-loader/internal/retrier"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// FakeStep is one scripted response of a FakeFetcher.
type FakeStep struct {
	Payload Payload
	Err     error
}

// FakeFetcher serves scripted responses keyed by path. Each path holds a queue
// of steps; the last step repeats once the queue is drained. Unknown paths fail
// with a non-retryable 404 fault.
type FakeFetcher struct {
	mu    sync.Mutex
	steps map[string][]FakeStep
	calls map[string]int
	order []string
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		steps: make(map[string][]FakeStep),
		calls: make(map[string]int),
	}
}

// LoadFixture builds a FakeFetcher from a JSON file mapping paths to payloads.
func LoadFixture(path string) (*FakeFetcher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var payloads map[string]Payload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	f := NewFakeFetcher()
	for p, payload := range payloads {
		f.Respond(p, payload)
	}
	return f, nil
}

func (f *FakeFetcher) Script(path string, steps ...FakeStep) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[path] = append(f.steps[path], steps...)
	return f
}

func (f *FakeFetcher) Respond(path string, p Payload) *FakeFetcher {
	return f.Script(path, FakeStep{Payload: p})
}

func (f *FakeFetcher) Fail(path string, err error) *FakeFetcher {
	return f.Script(path, FakeStep{Err: err})
}

func (f *FakeFetcher) Fetch(ctx context.Context, path string) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, retrier.NewFault(retrier.Cancelled, 0, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[path]++
	f.order = append(f.order, path)

	queue := f.steps[path]
	if len(queue) == 0 {
		return nil, retrier.NewFault(retrier.NonRetryable, 404, errors.New("API error: 404"))
	}
	step := queue[0]
	if len(queue) > 1 {
		f.steps[path] = queue[1:]
	}
	return step.Payload, step.Err
}

func (f *FakeFetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Requested returns every requested path in call order.
func (f *FakeFetcher) Requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}
