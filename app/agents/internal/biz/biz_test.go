package biz

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGenerator replays canned model replies in order.
type fakeGenerator struct {
	mu      sync.Mutex
	texts   []string
	objects []string
	textErr error
	objErr  error
	prompts []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.texts) == 0 {
		return "", errors.New("no canned text")
	}
	t := f.texts[0]
	f.texts = f.texts[1:]
	return t, nil
}

func (f *fakeGenerator) GenerateObject(ctx context.Context, system, prompt string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.objErr != nil {
		return f.objErr
	}
	if len(f.objects) == 0 {
		return errors.New("no canned object")
	}
	o := f.objects[0]
	f.objects = f.objects[1:]
	return json.Unmarshal([]byte(o), out)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// mockRunRepo keeps runs in memory.
type mockRunRepo struct {
	mu   sync.Mutex
	runs []*AgentRun
	err  error
}

func (m *mockRunRepo) SaveRun(ctx context.Context, run *AgentRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRunRepo) ListRuns(ctx context.Context, agent string, limit int) ([]*AgentRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*AgentRun
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if agent == "" || m.runs[i].Agent == agent {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *mockRunRepo) last() *AgentRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil
	}
	return m.runs[len(m.runs)-1]
}

var fixedNow = time.Date(2024, 10, 7, 14, 30, 0, 0, time.UTC)

// testFiller returns a constant draw and a frozen clock.
func testFiller(u float64) filler {
	return filler{
		rnd: func() float64 { return u },
		now: func() time.Time { return fixedNow },
	}
}

func newTestRuns() (*RunUseCase, *mockRunRepo) {
	repo := &mockRunRepo{}
	return NewRunUseCase(repo, log.DefaultLogger), repo
}
