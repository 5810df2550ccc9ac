package diagnostics

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/congo-pay/ledger-engine/internal/ledger"
)

// Reporter receives recoverable errors raised while applying records.
type Reporter interface {
	Warn(ctx context.Context, err error)
}

// LogReporter writes each warning to a structured logger. The CLI points the
// logger at stderr so warnings never mix with the account table.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter constructs a logging reporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Warn logs err with the record context when available.
func (r *LogReporter) Warn(ctx context.Context, err error) {
	if r == nil || r.logger == nil || err == nil {
		return
	}
	var recErr *ledger.RecordError
	if errors.As(err, &recErr) {
		r.logger.WarnContext(ctx, "record rejected",
			slog.String("kind", recErr.Kind.String()),
			slog.Int("client", int(recErr.Client)),
			slog.Int64("tx", int64(recErr.Tx)),
			slog.String("error", recErr.Err.Error()),
		)
		return
	}
	r.logger.WarnContext(ctx, "record rejected", slog.Any("error", err))
}

// Warning is a collected warning in a serialisable form.
type Warning struct {
	Kind    string `json:"kind"`
	Client  uint16 `json:"client"`
	Tx      uint32 `json:"tx"`
	Message string `json:"message"`
}

// Collector keeps warnings in memory, optionally forwarding them to another
// reporter.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
	next     Reporter
}

// NewCollector creates a collector. next may be nil.
func NewCollector(next Reporter) *Collector {
	return &Collector{next: next}
}

// Warn records err and forwards it.
func (c *Collector) Warn(ctx context.Context, err error) {
	if err == nil {
		return
	}
	w := Warning{Message: err.Error()}
	var recErr *ledger.RecordError
	if errors.As(err, &recErr) {
		w = Warning{
			Kind:    recErr.Kind.String(),
			Client:  uint16(recErr.Client),
			Tx:      uint32(recErr.Tx),
			Message: recErr.Err.Error(),
		}
	}

	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()

	if c.next != nil {
		c.next.Warn(ctx, err)
	}
}

// Warnings returns a copy of the collected warnings in arrival order.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Multi fans each warning out to every non-nil reporter in order.
type Multi []Reporter

// NewMulti drops nil reporters.
func NewMulti(reporters ...Reporter) Multi {
	out := make(Multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Warn forwards err to each reporter.
func (m Multi) Warn(ctx context.Context, err error) {
	for _, r := range m {
		r.Warn(ctx, err)
	}
}
