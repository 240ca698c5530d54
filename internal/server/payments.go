package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	routingdomain "github.com/tabpay/tabpay/internal/provider/routing/domain"
	"go.uber.org/zap"
)

type createIntentBody struct {
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Metadata map[string]any `json:"metadata"`
}

type reconcileBody struct {
	TargetReference string `json:"target_reference"`
	Limit           int    `json:"limit"`
}

// CreateOrderIntent issues (or re-issues) the QR payment intent for an order.
// Re-scanning the same order returns the existing open intent.
func (s *Server) CreateOrderIntent(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	tenantID, ok := tenantFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var body createIntentBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	view, err := s.paymentSvc.CreateIntent(c.Request.Context(), paymentdomain.CreateIntentRequest{
		SubjectID: &orderID,
		TenantID:  tenantID,
		Currency:  body.Currency,
		Metadata:  body.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CreatePaymentIntent issues a standalone intent with no backing order, used
// for tenant-level charges such as subscription upgrades.
func (s *Server) CreatePaymentIntent(c *gin.Context) {
	tenantID, ok := tenantFromHeader(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var body createIntentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	view, err := s.paymentSvc.CreateIntent(c.Request.Context(), paymentdomain.CreateIntentRequest{
		TenantID: tenantID,
		Amount:   body.Amount,
		Currency: body.Currency,
		Metadata: body.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) GetPayment(c *gin.Context) {
	paymentID, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	view, err := s.paymentSvc.GetStatus(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CheckPayment runs an on-demand provider poll for one payment.
func (s *Server) CheckPayment(c *gin.Context) {
	if !s.checkLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	paymentID, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	result, err := s.reconcileSvc.CheckPayment(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReconcilePayments runs one batch pass over open payments against the
// provider's recent transactions.
func (s *Server) ReconcilePayments(c *gin.Context) {
	if !s.reconcileLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var body reconcileBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	result, err := s.reconcileSvc.PollAndReconcile(c.Request.Context(), strings.TrimSpace(body.TargetReference), body.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type bankConfigBody struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	AccountName   string `json:"account_name"`
	APIKey        string `json:"api_key"`
}

// UpsertBankConfig stores a tenant's encrypted bank routing override.
func (s *Server) UpsertBankConfig(c *gin.Context) {
	tenantID, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	var body bankConfigBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.routingSvc.Save(c.Request.Context(), tenantID, routingdomain.RoutingConfig{
		AccountNumber: strings.TrimSpace(body.AccountNumber),
		BankCode:      strings.TrimSpace(body.BankCode),
		AccountName:   strings.TrimSpace(body.AccountName),
		APIKey:        strings.TrimSpace(body.APIKey),
	})
	if err != nil {
		if errors.Is(err, routingdomain.ErrInvalidConfig) {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleTransferWebhook ingests one provider delivery. Business rejections
// still answer 200 so the provider does not amplify retries; only an auth
// failure surfaces as 401.
func (s *Server) HandleTransferWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.webhookSvc.Handle(c.Request.Context(), payload, c.GetHeader("Authorization"))
	if err != nil {
		if errors.Is(err, paymentdomain.ErrInvalidSignature) {
			AbortWithError(c, err)
			return
		}

		s.log.Warn("webhook rejected",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, paymentdomain.WebhookResult{
			Success: false,
			Message: webhookRejectionMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func webhookRejectionMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidPayload):
		return "malformed payload"
	case errors.Is(err, paymentdomain.ErrMissingReference):
		return "missing transfer reference or transaction id"
	case errors.Is(err, paymentdomain.ErrPaymentExpired):
		return "payment intent expired"
	default:
		return "processing failed"
	}
}

func tenantFromHeader(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}
