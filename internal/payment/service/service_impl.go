package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/notify"
	"github.com/tabpay/tabpay/internal/observability/metrics"
	orderdomain "github.com/tabpay/tabpay/internal/order/domain"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/provider/gateway"
	routingdomain "github.com/tabpay/tabpay/internal/provider/routing/domain"
	"github.com/tabpay/tabpay/internal/statuscache"
)

const defaultCurrency = "VND"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	OrderRepo  orderdomain.Repository
	RoutingSvc routingdomain.Service
	Tuning     *config.TuningHolder
	Cfg        config.Config
	Cache      *statuscache.Cache           `optional:"true"`
	Notify     *notify.Publisher            `optional:"true"`
	Hook       paymentdomain.CompletionHook `optional:"true"`
	ObsMetrics *metrics.PaymentMetrics      `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	orderRepo  orderdomain.Repository
	routingSvc routingdomain.Service
	tuning     *config.TuningHolder
	cfg        config.Config
	cache      *statuscache.Cache
	notify     *notify.Publisher
	hook       paymentdomain.CompletionHook
	obsMetrics *metrics.PaymentMetrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		orderRepo:  p.OrderRepo,
		routingSvc: p.RoutingSvc,
		tuning:     p.Tuning,
		cfg:        p.Cfg,
		cache:      p.Cache,
		notify:     p.Notify,
		hook:       p.Hook,
		obsMetrics: p.ObsMetrics,
	}
}

// CreateIntent returns the subject's active payment when one exists, so the
// customer re-scanning a QR never produces a second open payment for the same
// order.
func (s *Service) CreateIntent(ctx context.Context, req paymentdomain.CreateIntentRequest) (*paymentdomain.PaymentView, error) {
	now := time.Now().UTC()

	amount := req.Amount
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	if req.SubjectID != nil {
		order, err := s.orderRepo.FindPayableOrder(ctx, s.db, *req.SubjectID, req.TenantID)
		if err != nil {
			return nil, err
		}
		amount = order.TotalAmount
		if order.Currency != "" {
			currency = order.Currency
		}

		existing, err := s.repo.FindActiveBySubject(ctx, s.db, *req.SubjectID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Status == paymentdomain.StatusCompleted || now.Before(existing.ExpiresAt) {
				return s.buildView(ctx, existing, existing.Status == paymentdomain.StatusCompleted)
			}
			// stale intent, retire it before issuing a fresh one
			if _, err := s.repo.MarkFailedConditional(ctx, s.db, existing.ID, "expired", now); err != nil {
				return nil, err
			}
			s.cache.Del(ctx, existing.ID)
		}
	}

	if amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	// Routing resolves before anything is persisted: a tenant without a bank
	// destination must not leave an orphan pending row behind.
	routing, err := s.resolveRouting(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	id := s.genID.Generate()
	payment := &paymentdomain.Payment{
		ID:                id,
		SubjectID:         req.SubjectID,
		TenantID:          req.TenantID,
		Method:            paymentdomain.MethodBankTransfer,
		Status:            paymentdomain.StatusPending,
		Amount:            amount,
		Currency:          currency,
		TransferReference: transferReference(id),
		ExpiresAt:         now.Add(s.tuning.Current().IntentExpiry()),
		ProviderMetadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	view := viewOf(payment)
	s.attachRouting(view, payment, routing)

	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.log.Info("payment intent created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("transfer_reference", payment.TransferReference),
		zap.Int64("amount", payment.Amount),
	)

	return view, nil
}

// Settle is the single idempotent commit path shared by the webhook and
// polling channels. Replays and lost races both resolve to already_settled.
func (s *Service) Settle(ctx context.Context, req paymentdomain.SettleRequest) (*paymentdomain.SettlementResult, error) {
	now := time.Now().UTC()

	var result *paymentdomain.SettlementResult
	var settled *paymentdomain.Payment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}

		if payment.Status.Terminal() {
			outcome := paymentdomain.OutcomeAlreadySettled
			if payment.Status == paymentdomain.StatusFailed {
				outcome = paymentdomain.OutcomeNotSettlable
			}
			result = &paymentdomain.SettlementResult{
				Outcome:   outcome,
				PaymentID: payment.ID,
				Status:    payment.Status,
				PaidAt:    payment.PaidAt,
			}
			return nil
		}

		epsilon := s.tuning.Current().AmountEpsilon
		if math.Abs(req.PaidAmount-float64(payment.Amount)) > epsilon {
			s.log.Warn("settlement amount mismatch",
				zap.String("payment_id", payment.ID.String()),
				zap.Int64("expected", payment.Amount),
				zap.Float64("paid", req.PaidAmount),
			)
			result = &paymentdomain.SettlementResult{
				Outcome:   paymentdomain.OutcomeAmountMismatch,
				PaymentID: payment.ID,
				Status:    payment.Status,
			}
			return paymentdomain.ErrAmountMismatch
		}

		paidAt := req.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		metadata := settlementMetadata(payment, req, paidAt)

		won, err := s.repo.SettleConditional(ctx, tx, payment.ID, req.ProviderTransactionID, paidAt, metadata, now)
		if err != nil {
			return err
		}
		if !won {
			current, err := s.repo.FindByID(ctx, tx, payment.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return paymentdomain.ErrPaymentNotFound
			}
			outcome := paymentdomain.OutcomeNotSettlable
			if current.Status == paymentdomain.StatusCompleted {
				outcome = paymentdomain.OutcomeAlreadySettled
			}
			result = &paymentdomain.SettlementResult{
				Outcome:   outcome,
				PaymentID: current.ID,
				Status:    current.Status,
				PaidAt:    current.PaidAt,
			}
			return nil
		}

		if payment.SubjectID != nil {
			if err := s.completeOrder(ctx, tx, *payment.SubjectID, now); err != nil {
				return err
			}
		}

		payment.Status = paymentdomain.StatusCompleted
		payment.ProviderTransactionID = &req.ProviderTransactionID
		payment.PaidAt = &paidAt
		payment.ProviderMetadata = metadata
		payment.UpdatedAt = now

		settled = payment
		result = &paymentdomain.SettlementResult{
			Outcome:   paymentdomain.OutcomeSettled,
			PaymentID: payment.ID,
			Status:    paymentdomain.StatusCompleted,
			PaidAt:    &paidAt,
		}
		return nil
	})
	if err != nil {
		if result != nil && result.Outcome == paymentdomain.OutcomeAmountMismatch {
			s.obsMetrics.IncSettlement(req.Source, string(result.Outcome))
			return result, err
		}
		return nil, err
	}

	s.obsMetrics.IncSettlement(req.Source, string(result.Outcome))

	if settled != nil {
		s.cache.Del(ctx, settled.ID)
		s.notify.PaymentCompleted(ctx, settled, req.Source)

		s.log.Info("payment settled",
			zap.String("payment_id", settled.ID.String()),
			zap.String("source", req.Source),
			zap.String("provider_transaction_id", req.ProviderTransactionID),
		)

		if settled.SubjectID == nil && s.hook != nil {
			if err := s.hook.OnPaymentCompleted(ctx, settled); err != nil {
				s.log.Error("completion hook failed",
					zap.String("payment_id", settled.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	return result, nil
}

func (s *Service) MarkFailed(ctx context.Context, paymentID snowflake.ID, reason string) error {
	now := time.Now().UTC()

	moved, err := s.repo.MarkFailedConditional(ctx, s.db, paymentID, reason, now)
	if err != nil {
		return err
	}
	if moved {
		s.cache.Del(ctx, paymentID)
		s.log.Info("payment failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("reason", reason),
		)
	}
	return nil
}

func (s *Service) GetStatus(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.PaymentView, error) {
	if view, ok := s.cache.Get(ctx, paymentID); ok {
		s.obsMetrics.IncStatusCache("hit")
		return view, nil
	}
	s.obsMetrics.IncStatusCache("miss")

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}

	view := viewOf(payment)
	s.cache.Set(ctx, view)
	return view, nil
}

func (s *Service) completeOrder(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, now time.Time) error {
	if _, err := s.orderRepo.MarkPaidIfUnpaid(ctx, tx, orderID, now); err != nil {
		return err
	}
	advanced, err := s.orderRepo.AdvanceStatusIfPending(ctx, tx, orderID, now)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	return s.orderRepo.AppendStatusHistory(ctx, tx, &orderdomain.StatusHistory{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		FromStatus: orderdomain.StatusPending,
		ToStatus:   orderdomain.StatusReceived,
		Reason:     "payment_completed",
		CreatedAt:  now,
	})
}

// buildView attaches the QR payload for open payments; settled ones only need
// the status projection.
func (s *Service) buildView(ctx context.Context, payment *paymentdomain.Payment, settledOnly bool) (*paymentdomain.PaymentView, error) {
	view := viewOf(payment)
	if settledOnly {
		return view, nil
	}

	routing, err := s.resolveRouting(ctx, payment.TenantID)
	if err != nil {
		return nil, err
	}
	s.attachRouting(view, payment, routing)
	return view, nil
}

// resolveRouting narrows the routing layer's config errors to the payment
// domain's sentinel so callers see one failure mode for an unroutable tenant.
func (s *Service) resolveRouting(ctx context.Context, tenantID snowflake.ID) (*routingdomain.RoutingConfig, error) {
	routing, err := s.routingSvc.Resolve(ctx, tenantID)
	if err != nil {
		if errors.Is(err, routingdomain.ErrInvalidConfig) || errors.Is(err, routingdomain.ErrEncryptionKeyMissing) {
			return nil, paymentdomain.ErrRoutingConfigMissing
		}
		return nil, err
	}
	return routing, nil
}

func (s *Service) attachRouting(view *paymentdomain.PaymentView, payment *paymentdomain.Payment, routing *routingdomain.RoutingConfig) {
	gatewayRouting := gateway.Routing{
		AccountNumber: routing.AccountNumber,
		BankCode:      routing.BankCode,
		AccountName:   routing.AccountName,
	}
	view.QRPayload = gateway.BuildQRPayload(gatewayRouting, payment.Amount, payment.Currency, payment.TransferReference)
	if base := s.cfg.Provider.DeepLinkBase; base != "" {
		view.DeepLink = gateway.BuildDeepLink(base, gatewayRouting, payment.Amount, payment.TransferReference)
	}
	view.AccountNumber = routing.AccountNumber
	view.BankCode = routing.BankCode
}

func viewOf(payment *paymentdomain.Payment) *paymentdomain.PaymentView {
	return &paymentdomain.PaymentView{
		PaymentID:         payment.ID,
		SubjectID:         payment.SubjectID,
		Status:            payment.Status,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		TransferReference: payment.TransferReference,
		ExpiresAt:         payment.ExpiresAt,
		PaidAt:            payment.PaidAt,
	}
}

func settlementMetadata(payment *paymentdomain.Payment, req paymentdomain.SettleRequest, paidAt time.Time) datatypes.JSONMap {
	metadata := datatypes.JSONMap{}
	for k, v := range payment.ProviderMetadata {
		metadata[k] = v
	}

	audit := map[string]any{
		"provider_transaction_id": req.ProviderTransactionID,
		"paid_amount":             req.PaidAmount,
		"paid_at":                 paidAt.Format(time.RFC3339),
	}
	for k, v := range req.AuditMetadata {
		audit[k] = v
	}
	metadata["settlement_"+req.Source] = audit
	return metadata
}

// transferReference derives the customer-visible transfer note from the
// payment id. Base36 keeps it short enough for bank transfer content limits.
func transferReference(id snowflake.ID) string {
	return "TP" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}
