package biz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusOK       = "ok"
	RunStatusFallback = "fallback"
	RunStatusInvalid  = "invalid"
	RunStatusError    = "error"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
	recordTimeout   = 5 * time.Second
)

// AgentRun is one recorded agent invocation.
type AgentRun struct {
	ID         string          `json:"id"`
	Agent      string          `json:"agent"`
	Input      json.RawMessage `json:"input"`
	Output     json.RawMessage `json:"output,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RunRepo stores agent runs.
type RunRepo interface {
	SaveRun(ctx context.Context, run *AgentRun) error
	// ListRuns returns the newest runs first; an empty agent matches every agent.
	ListRuns(ctx context.Context, agent string, limit int) ([]*AgentRun, error)
}

// RunUseCase records and lists agent runs.
type RunUseCase struct {
	repo RunRepo
	log  *log.Helper
	now  func() time.Time
}

// NewRunUseCase new a run usecase.
func NewRunUseCase(repo RunRepo, logger log.Logger) *RunUseCase {
	return &RunUseCase{repo: repo, log: log.NewHelper(logger), now: time.Now}
}

// Record saves one run. Storage errors are logged and swallowed so that
// history never changes what the caller sees.
func (uc *RunUseCase) Record(ctx context.Context, agent string, input, output any, started time.Time, cause error, status string) {
	if uc == nil || uc.repo == nil {
		return
	}
	if status == "" {
		switch {
		case cause == nil:
			status = RunStatusOK
		case errors.IsBadRequest(cause):
			status = RunStatusInvalid
		default:
			status = RunStatusError
		}
	}

	run := &AgentRun{
		ID:         uuid.NewString(),
		Agent:      agent,
		Status:     status,
		DurationMs: uc.now().Sub(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if cause != nil {
		run.Error = cause.Error()
	}
	run.Input = uc.marshal(input)
	if cause == nil {
		run.Output = uc.marshal(output)
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := uc.repo.SaveRun(sctx, run); err != nil {
		uc.log.WithContext(ctx).Warnf("save %s run: %v", agent, err)
	}
}

func (uc *RunUseCase) marshal(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		uc.log.Warnf("marshal run payload: %v", err)
		return nil
	}
	return b
}

// List returns recent runs, newest first.
func (uc *RunUseCase) List(ctx context.Context, agent string, limit int) ([]*AgentRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}
	if uc == nil || uc.repo == nil {
		return []*AgentRun{}, nil
	}
	runs, err := uc.repo.ListRuns(ctx, agent, limit)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("list runs: %v", err)
		return nil, ErrRunHistoryUnavailable
	}
	if runs == nil {
		runs = []*AgentRun{}
	}
	return runs, nil
}
