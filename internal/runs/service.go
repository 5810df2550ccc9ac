// Package runs executes uploaded transaction files and reports the resulting
// account table.
package runs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/ledger-engine/internal/archive"
	"github.com/congo-pay/ledger-engine/internal/csvio"
	"github.com/congo-pay/ledger-engine/internal/diagnostics"
	"github.com/congo-pay/ledger-engine/internal/engine"
	"github.com/congo-pay/ledger-engine/internal/events"
	"github.com/congo-pay/ledger-engine/internal/ledger"
	"github.com/congo-pay/ledger-engine/internal/logging"
	"github.com/congo-pay/ledger-engine/internal/metrics"
	"github.com/congo-pay/ledger-engine/internal/middleware"
)

// Service runs each upload through a fresh engine.
type Service struct {
	archiver  archive.Archiver
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records run outcomes and rejections on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher announces completed runs through p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService constructs a run service. A nil archiver discards reports.
func NewService(archiver archive.Archiver, logger *slog.Logger, opts ...Option) *Service {
	if archiver == nil {
		archiver = archive.Discard{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Service{archiver: archiver, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report describes a completed run.
type Report struct {
	RunID    uuid.UUID
	Accounts []ledger.Snapshot
	Warnings []diagnostics.Warning
	Applied  int
	Rejected int
}

// Process applies every record read from r. A fatal input error aborts the
// run and nothing is archived or published. A publish failure is logged and
// does not fail the run.
func (s *Service) Process(ctx context.Context, r io.Reader) (Report, error) {
	start := time.Now()
	runID := uuid.New()
	reqID := middleware.RequestIDFrom(ctx)
	logger := s.logger.With(slog.String("run_id", runID.String()))
	if reqID != "" {
		logger = logger.With(slog.String("request_id", reqID))
	}

	reporters := []diagnostics.Reporter{diagnostics.NewLogReporter(logger)}
	if s.metrics != nil {
		reporters = append(reporters, s.metrics)
	}
	collector := diagnostics.NewCollector(diagnostics.NewMulti(reporters...))
	eng := engine.New(engine.WithReporter(collector), engine.WithLogger(logger))

	res, err := eng.Run(ctx, csvio.NewReader(r))
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, engine.ErrFatalInput) {
			outcome = metrics.OutcomeInvalidInput
		}
		s.observe(outcome, res, start)
		return Report{}, err
	}

	report := Report{
		RunID:    runID,
		Accounts: res.Accounts,
		Warnings: collector.Warnings(),
		Applied:  res.Applied,
		Rejected: res.Rejected,
	}

	if err := s.archiver.Save(ctx, archive.Run{
		ID:        runID,
		Applied:   res.Applied,
		Rejected:  res.Rejected,
		Accounts:  res.Accounts,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.observe(metrics.OutcomeFailed, res, start)
		return Report{}, fmt.Errorf("archive run %s: %w", runID, err)
	}
	s.observe(metrics.OutcomeCompleted, res, start)

	if s.publisher != nil {
		if err := s.publisher.PublishRunCompleted(ctx, events.RunCompleted{
			RunID:          runID.String(),
			RequestID:      reqID,
			Accounts:       len(res.Accounts),
			LockedAccounts: lockedCount(res.Accounts),
			Applied:        res.Applied,
			Rejected:       res.Rejected,
			CompletedAt:    time.Now().UTC(),
		}); err != nil {
			logger.Warn("publish run event", slog.Any("error", err))
		}
	}

	logger.Info("run completed",
		slog.Int("accounts", len(report.Accounts)),
		slog.Int("applied", report.Applied),
		slog.Int("rejected", report.Rejected),
	)
	return report, nil
}

func (s *Service) observe(outcome string, res engine.Result, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRun(outcome, res.Applied, res.Rejected, time.Since(start))
}

func lockedCount(accounts []ledger.Snapshot) int {
	n := 0
	for _, a := range accounts {
		if a.Locked {
			n++
		}
	}
	return n
}
