// Package archive persists finished run reports.
package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/ledger-engine/internal/ledger"
)

// Run is the archived outcome of one engine run.
type Run struct {
	ID        uuid.UUID
	Applied   int
	Rejected  int
	Accounts  []ledger.Snapshot
	CreatedAt time.Time
}

// Archiver stores run reports. Archives are write-only; the engine never reads
// them back.
type Archiver interface {
	Save(ctx context.Context, run Run) error
}

// Discard is an Archiver that drops every run.
type Discard struct{}

// Save drops run.
func (Discard) Save(context.Context, Run) error { return nil }

// Memory keeps runs in process, mainly for tests.
type Memory struct {
	mu   sync.Mutex
	runs []Run
}

// Save appends run.
func (m *Memory) Save(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// Runs returns the saved runs in save order.
func (m *Memory) Runs() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, len(m.runs))
	copy(out, m.runs)
	return out
}
