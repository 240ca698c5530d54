package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/tabpay/tabpay/internal/clock"
	"github.com/tabpay/tabpay/internal/config"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log          *zap.Logger
	ReconcileSvc paymentdomain.ReconcileService
	Tuning       *config.TuningHolder
	Clock        clock.Clock
	Config       Config `optional:"true"`
}

// Scheduler drives the polling fallback: every RunInterval it matches open
// payments against the provider's recent transactions, so payments settle
// even when webhook deliveries are lost.
type Scheduler struct {
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	reconcileSvc paymentdomain.ReconcileService
	tuning       *config.TuningHolder
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.ReconcileSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		reconcileSvc: p.ReconcileSvc,
		tuning:       p.Tuning,
	}, nil
}

// RunOnce executes a single reconcile pass with a bounded deadline.
func (s *Scheduler) RunOnce(parent context.Context) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	result, err := s.reconcileSvc.PollAndReconcile(ctx, "", s.tuning.Current().PollLimit)
	if err != nil {
		s.log.Warn("reconcile pass failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	if len(result.Settled) > 0 {
		s.log.Info("reconcile pass settled payments",
			zap.Int("fetched", result.Fetched),
			zap.Int("settled", len(result.Settled)),
			zap.Int("skipped", result.Skipped),
		)
	} else {
		s.log.Debug("reconcile pass idle",
			zap.Int("fetched", result.Fetched),
			zap.Int("skipped", result.Skipped),
		)
	}
	return nil
}

// RunForever loops RunOnce until the context is cancelled. Provider outages
// are logged and retried on the next tick; the loop never exits on error.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
