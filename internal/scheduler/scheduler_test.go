package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tabpay/tabpay/internal/clock"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"go.uber.org/zap"
)

type fakeReconcileService struct {
	calls     int
	lastLimit int
	result    *paymentdomain.PollResult
	err       error
}

func (f *fakeReconcileService) CheckPayment(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.CheckResult, error) {
	_ = ctx
	_ = paymentID
	return nil, nil
}

func (f *fakeReconcileService) PollAndReconcile(ctx context.Context, targetReference string, limit int) (*paymentdomain.PollResult, error) {
	f.calls++
	f.lastLimit = limit
	_ = ctx
	_ = targetReference
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestScheduler(t *testing.T, svc paymentdomain.ReconcileService) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:          zap.NewNop(),
		ReconcileSvc: svc,
		Clock:        clock.NewFakeClock(time.Now()),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sched
}

func TestRunOncePassesPollLimit(t *testing.T) {
	svc := &fakeReconcileService{result: &paymentdomain.PollResult{Fetched: 3, Skipped: 1}}
	sched := newTestScheduler(t, svc)

	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", svc.calls)
	}
	if svc.lastLimit <= 0 {
		t.Fatalf("expected positive poll limit, got %d", svc.lastLimit)
	}
}

func TestRunOnceSurfacesReconcileError(t *testing.T) {
	wantErr := errors.New("provider down")
	sched := newTestScheduler(t, &fakeReconcileService{err: wantErr})

	if err := sched.RunOnce(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	if _, err := New(Params{Log: zap.NewNop()}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
