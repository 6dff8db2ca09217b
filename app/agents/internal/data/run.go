package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
)

const memoryRunCapacity = 256

// NewRunRepo returns the SQL repo when a database is open, otherwise the in-memory ring.
func NewRunRepo(data *Data, logger log.Logger) biz.RunRepo {
	if data == nil || data.db == nil {
		return newMemoryRunRepo(memoryRunCapacity)
	}
	return &runRepo{data: data, log: log.NewHelper(logger)}
}

type runRepo struct {
	data *Data
	log  *log.Helper
}

func (r *runRepo) SaveRun(ctx context.Context, run *biz.AgentRun) error {
	_, err := r.data.db.ExecContext(ctx, r.data.rebind(`
		INSERT INTO agent_runs (id, agent, input, output, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Agent, nullJSON(run.Input), nullJSON(run.Output),
		run.Status, run.Error, run.DurationMs, run.CreatedAt.UnixMilli(),
	)
	return err
}

func (r *runRepo) ListRuns(ctx context.Context, agent string, limit int) ([]*biz.AgentRun, error) {
	query := `SELECT id, agent, input, output, status, error, duration_ms, created_at FROM agent_runs`
	var args []any
	if agent != "" {
		query += ` WHERE agent = ?`
		args = append(args, agent)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.data.db.QueryContext(ctx, r.data.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*biz.AgentRun, 0, limit)
	for rows.Next() {
		var (
			run           biz.AgentRun
			input, output sql.NullString
			createdAt     int64
		)
		if err := rows.Scan(&run.ID, &run.Agent, &input, &output, &run.Status, &run.Error, &run.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		if input.Valid {
			run.Input = json.RawMessage(input.String)
		}
		if output.Valid {
			run.Output = json.RawMessage(output.String)
		}
		run.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func nullJSON(b json.RawMessage) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// memoryRunRepo is a fixed-size circular buffer of the latest runs.
type memoryRunRepo struct {
	mu       sync.RWMutex
	data     []*biz.AgentRun
	capacity int
	index    int // next write position
	size     int
}

func newMemoryRunRepo(capacity int) *memoryRunRepo {
	if capacity <= 0 {
		capacity = memoryRunCapacity
	}
	return &memoryRunRepo{data: make([]*biz.AgentRun, capacity), capacity: capacity}
}

func (m *memoryRunRepo) SaveRun(ctx context.Context, run *biz.AgentRun) error {
	cp := *run
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[m.index] = &cp
	m.index = (m.index + 1) % m.capacity
	if m.size < m.capacity {
		m.size++
	}
	return nil
}

func (m *memoryRunRepo) ListRuns(ctx context.Context, agent string, limit int) ([]*biz.AgentRun, error) {
	if limit <= 0 {
		return []*biz.AgentRun{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*biz.AgentRun, 0, min(limit, m.size))
	// 从最新一条向前遍历
	for i := 1; i <= m.size && len(out) < limit; i++ {
		run := m.data[(m.index-i+m.capacity)%m.capacity]
		if agent != "" && run.Agent != agent {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	return out, nil
}
