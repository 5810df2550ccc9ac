// Package engine drives a stream of transaction records through per-client
// accounts and a shared transaction log.
//
// Records are applied strictly in arrival order by a single goroutine. An
// Engine holds all ledger state for one run and must not be shared.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/congo-pay/ledger-engine/internal/diagnostics"
	"github.com/congo-pay/ledger-engine/internal/ledger"
)

// ErrFatalInput marks a source error that stopped the run.
var ErrFatalInput = errors.New("fatal input error")

// Source yields records one at a time and returns io.EOF when exhausted.
type Source interface {
	Next() (ledger.Record, error)
}

// Result is the outcome of a run. Accounts is ordered by client id.
type Result struct {
	Accounts []ledger.Snapshot
	Applied  int
	Rejected int
}

// Engine owns every account and the transaction log of one run.
type Engine struct {
	accounts map[ledger.ClientID]*ledger.Account
	log      *ledger.TxLog
	reporter diagnostics.Reporter
	logger   *slog.Logger

	applied  int
	rejected int
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter sets the destination for recoverable errors.
func WithReporter(r diagnostics.Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithLogger sets the logger used for run-level events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine with no accounts.
func New(opts ...Option) *Engine {
	e := &Engine{
		accounts: make(map[ledger.ClientID]*ledger.Account),
		log:      ledger.NewTxLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply routes rec to its client's account, creating the account on first
// sight. The returned error is recoverable and has already been counted but
// not reported.
func (e *Engine) Apply(rec ledger.Record) error {
	acct, ok := e.accounts[rec.Client]
	if !ok {
		acct = ledger.NewAccount(rec.Client)
		e.accounts[rec.Client] = acct
	}
	if err := acct.Apply(rec, e.log); err != nil {
		e.rejected++
		return err
	}
	e.applied++
	return nil
}

// Run consumes src until io.EOF. Recoverable errors go to the reporter. Any
// other source error stops the run: the returned Result still holds every
// mutation made so far and the error wraps ErrFatalInput.
func (e *Engine) Run(ctx context.Context, src Source) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return e.result(), err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if e.logger != nil {
				e.logger.ErrorContext(ctx, "input stopped", slog.Any("error", err),
					slog.Int("applied", e.applied), slog.Int("rejected", e.rejected))
			}
			return e.result(), fmt.Errorf("%w: %w", ErrFatalInput, err)
		}

		if err := e.Apply(rec); err != nil && e.reporter != nil {
			e.reporter.Warn(ctx, err)
		}
	}

	if e.logger != nil {
		e.logger.DebugContext(ctx, "input consumed",
			slog.Int("accounts", len(e.accounts)),
			slog.Int("applied", e.applied),
			slog.Int("rejected", e.rejected))
	}
	return e.result(), nil
}

// Snapshots returns a copy of every account ordered by client id.
func (e *Engine) Snapshots() []ledger.Snapshot {
	out := make([]ledger.Snapshot, 0, len(e.accounts))
	for _, acct := range e.accounts {
		out = append(out, acct.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

// Account returns a snapshot of a single account.
func (e *Engine) Account(client ledger.ClientID) (ledger.Snapshot, bool) {
	acct, ok := e.accounts[client]
	if !ok {
		return ledger.Snapshot{}, false
	}
	return acct.Snapshot(), true
}

// History returns the deposits and withdrawals accepted for client.
func (e *Engine) History(client ledger.ClientID) []ledger.Entry {
	return e.log.ByClient(client)
}

func (e *Engine) result() Result {
	return Result{Accounts: e.Snapshots(), Applied: e.applied, Rejected: e.rejected}
}
