package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
	candle "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/platform/metrics"
)

const (
	DefaultConcurrency = 64
	DefaultCallTimeout = 5 * time.Second
)

// MarketDataGateway supplies price points. Absent data is reported as nil,
// never as an error.
type MarketDataGateway interface {
	Latest(ctx context.Context, symbol string) (*candle.Candle, error)
	PointAtOrBefore(ctx context.Context, symbol string, ts time.Time) (*candle.Candle, error)
	AverageVolume(ctx context.Context, symbol string, since time.Time) (*decimal.Decimal, error)
}

// AlertStore supplies armed alerts and performs the trigger transition.
type AlertStore interface {
	// ListCandidates returns every alert that is active and not triggered.
	ListCandidates(ctx context.Context) ([]entity.Alert, error)
	// TryTrigger atomically sets triggered=true and last_triggered_at=now if
	// the alert is still armed. It returns false when another caller won.
	TryTrigger(ctx context.Context, id uint, now time.Time) (bool, error)
}

// Dispatcher delivers the notification of a triggered alert. It must not block
// on subscribers.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert entity.Alert, decision entity.Decision)
}

// EvaluatorConfig holds the tunables of an Evaluator. Zero values use defaults.
type EvaluatorConfig struct {
	Concurrency int              // worker pool size upper bound
	CallTimeout time.Duration    // timeout of each gateway/store call
	Clock       func() time.Time // nil means time.Now
	Logger      *slog.Logger     // nil means slog.Default()
}

// Evaluator runs alert evaluation cycles. RunCycle may be called concurrently;
// the store's compare-and-set keeps each trigger at most once per arm period.
type Evaluator struct {
	store       AlertStore
	market      MarketDataGateway
	dispatcher  Dispatcher
	concurrency int
	callTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewEvaluator(store AlertStore, market MarketDataGateway, dispatcher Dispatcher, cfg EvaluatorConfig) *Evaluator {
	e := &Evaluator{
		store:       store,
		market:      market,
		dispatcher:  dispatcher,
		concurrency: cfg.Concurrency,
		callTimeout: cfg.CallTimeout,
		now:         cfg.Clock,
		logger:      cfg.Logger,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.callTimeout <= 0 {
		e.callTimeout = DefaultCallTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "alert_evaluator")
	return e
}

type outcome int

const (
	outcomeIdle outcome = iota
	outcomeTriggered
	outcomeRaced // decided to trigger but another cycle committed first
	outcomeInsufficient
	outcomeError
)

func (o outcome) label() string {
	switch o {
	case outcomeTriggered:
		return metrics.OutcomeTriggered
	case outcomeRaced:
		return metrics.OutcomeRaced
	case outcomeInsufficient:
		return metrics.OutcomeInsufficient
	case outcomeError:
		return metrics.OutcomeError
	}
	return metrics.OutcomeIdle
}

// RunCycle evaluates every armed alert once.
//
// Per-alert failures are logged and counted in the report. Only a failure to
// list candidates aborts the cycle, returning an error wrapping
// domain.ErrCycleAborted.
func (e *Evaluator) RunCycle(ctx context.Context) (entity.CycleReport, error) {
	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	listCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	candidates, err := e.store.ListCandidates(listCtx)
	cancel()
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("aborted").Inc()
		e.logger.Error("failed to list alert candidates", "error", err)
		return entity.CycleReport{}, fmt.Errorf("%w: %w", domain.ErrCycleAborted, err)
	}

	report := entity.CycleReport{Scanned: len(candidates)}
	if len(candidates) == 0 {
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
		return report, nil
	}

	// 各ワーカーは自分の添字にだけ書き込む
	outcomes := make([]outcome, len(candidates))
	var g errgroup.Group
	g.SetLimit(min(e.concurrency, len(candidates)))
	for i, a := range candidates {
		g.Go(func() error {
			outcomes[i] = e.evaluateOne(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		metrics.EvaluatedTotal.WithLabelValues(o.label()).Inc()
		switch o {
		case outcomeTriggered:
			report.Triggered++
		case outcomeInsufficient:
			report.Insufficient++
		case outcomeError:
			report.Errors++
		}
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	e.logger.Info("alert cycle finished",
		"scanned", report.Scanned,
		"triggered", report.Triggered,
		"insufficient", report.Insufficient,
		"errors", report.Errors,
		"duration", time.Since(start),
	)
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, a entity.Alert) outcome {
	now := e.now()
	log := e.logger.With("alert_id", a.ID, "symbol", a.InstrumentID, "kind", a.Kind)

	snap, err := e.snapshot(ctx, a, now)
	if err != nil {
		log.Warn("failed to fetch market data", "error", err)
		return outcomeError
	}

	decision, err := Evaluate(a, snap)
	if err != nil {
		log.Warn("failed to evaluate alert", "error", err)
		return outcomeError
	}
	if decision.Insufficient {
		log.Debug("not enough market data", "reason", decision.Message)
		return outcomeInsufficient
	}
	if !decision.ShouldTrigger {
		return outcomeIdle
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	ok, err := e.store.TryTrigger(callCtx, a.ID, now)
	cancel()
	if err != nil {
		log.Warn("failed to commit trigger", "error", err)
		return outcomeError
	}
	if !ok {
		log.Debug("alert already triggered elsewhere")
		return outcomeRaced
	}

	a.Triggered = true
	a.LastTriggeredAt = &now
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(ctx, a, decision)
	}
	log.Info("alert triggered", "user_id", a.UserID)
	return outcomeTriggered
}

// snapshot fetches only the data the alert kind needs.
func (e *Evaluator) snapshot(ctx context.Context, a entity.Alert, now time.Time) (Snapshot, error) {
	var snap Snapshot
	var err error

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	snap.Latest, err = e.market.Latest(callCtx, a.InstrumentID)
	cancel()
	if err != nil {
		return snap, fmt.Errorf("latest: %w", err)
	}
	if snap.Latest == nil {
		return snap, nil
	}

	switch a.Kind {
	case entity.KindPercentChange24h:
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		snap.Prior, err = e.market.PointAtOrBefore(callCtx, a.InstrumentID, now.Add(-PercentChangeWindow))
		cancel()
		if err != nil {
			return snap, fmt.Errorf("point at or before: %w", err)
		}
	case entity.KindVolumeSpike:
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		snap.AvgVolume, err = e.market.AverageVolume(callCtx, a.InstrumentID, now.Add(-VolumeAverageWindow))
		cancel()
		if err != nil {
			return snap, fmt.Errorf("average volume: %w", err)
		}
	}
	return snap, nil
}
