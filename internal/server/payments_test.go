package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"go.uber.org/zap"
)

type fakePaymentService struct {
	createCalls int
	statusErr   error
	view        *paymentdomain.PaymentView
}

func (f *fakePaymentService) CreateIntent(ctx context.Context, req paymentdomain.CreateIntentRequest) (*paymentdomain.PaymentView, error) {
	f.createCalls++
	_ = ctx
	_ = req
	return f.view, nil
}

func (f *fakePaymentService) Settle(ctx context.Context, req paymentdomain.SettleRequest) (*paymentdomain.SettlementResult, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (f *fakePaymentService) MarkFailed(ctx context.Context, paymentID snowflake.ID, reason string) error {
	_ = ctx
	_ = paymentID
	_ = reason
	return nil
}

func (f *fakePaymentService) GetStatus(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.PaymentView, error) {
	_ = ctx
	_ = paymentID
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.view, nil
}

type fakeWebhookService struct {
	err    error
	result *paymentdomain.WebhookResult
	calls  int
}

func (f *fakeWebhookService) Handle(ctx context.Context, payload []byte, authHeader string) (*paymentdomain.WebhookResult, error) {
	f.calls++
	_ = ctx
	_ = payload
	_ = authHeader
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeReconcileService struct {
	checkCalls int
	result     *paymentdomain.CheckResult
}

func (f *fakeReconcileService) CheckPayment(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.CheckResult, error) {
	f.checkCalls++
	_ = ctx
	_ = paymentID
	return f.result, nil
}

func (f *fakeReconcileService) PollAndReconcile(ctx context.Context, targetReference string, limit int) (*paymentdomain.PollResult, error) {
	_ = ctx
	_ = targetReference
	_ = limit
	return &paymentdomain.PollResult{}, nil
}

func TestHandleTransferWebhookUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}
	srv := &Server{log: zap.NewNop(), webhookSvc: webhookSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/webhooks/transfers", srv.HandleTransferWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers", bytes.NewBufferString(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestHandleTransferWebhookBusinessRejectionAnswers200(t *testing.T) {
	gin.SetMode(gin.TestMode)

	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrMissingReference}
	srv := &Server{log: zap.NewNop(), webhookSvc: webhookSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/webhooks/transfers", srv.HandleTransferWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers", bytes.NewBufferString(`{"amount": 1000}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result paymentdomain.WebhookResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success {
		t.Fatal("expected success=false for a rejected delivery")
	}
	if result.Message == "" {
		t.Fatal("expected a rejection message")
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &Server{
		log:        zap.NewNop(),
		paymentSvc: &fakePaymentService{statusErr: paymentdomain.ErrPaymentNotFound},
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/api/v1/payments/:id", srv.GetPayment)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/123456789", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestCheckPaymentRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reconcileSvc := &fakeReconcileService{result: &paymentdomain.CheckResult{State: paymentdomain.CheckPending}}
	srv := &Server{
		log:          zap.NewNop(),
		reconcileSvc: reconcileSvc,
		checkLimiter: newRateLimiter(1, time.Minute),
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/v1/payments/:id/check", srv.CheckPayment)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/123456789/check", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i+1, want, resp.Code)
		}
	}

	if reconcileSvc.checkCalls != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", reconcileSvc.checkCalls)
	}
}

func TestCreateOrderIntentRequiresTenantHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	paymentSvc := &fakePaymentService{view: &paymentdomain.PaymentView{}}
	srv := &Server{log: zap.NewNop(), paymentSvc: paymentSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/v1/orders/:id/intent", srv.CreateOrderIntent)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/123456789/intent", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if paymentSvc.createCalls != 0 {
		t.Fatal("expected payment service not to be called without a tenant header")
	}
}
