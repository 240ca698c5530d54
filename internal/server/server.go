package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tabpay/tabpay/internal/config"
	"github.com/tabpay/tabpay/internal/notify"
	"github.com/tabpay/tabpay/internal/observability/metrics"
	"github.com/tabpay/tabpay/internal/order"
	"github.com/tabpay/tabpay/internal/payment"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/provider/gateway"
	"github.com/tabpay/tabpay/internal/provider/routing"
	routingdomain "github.com/tabpay/tabpay/internal/provider/routing/domain"
	"github.com/tabpay/tabpay/internal/statuscache"
	"github.com/tabpay/tabpay/internal/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	metrics.Module,
	fx.Provide(registerGin),
	routing.Module,
	order.Module,
	subscription.Module,
	gateway.Module,
	statuscache.Module,
	notify.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	log              *zap.Logger
	paymentSvc       paymentdomain.Service
	webhookSvc       paymentdomain.WebhookService
	reconcileSvc     paymentdomain.ReconcileService
	routingSvc       routingdomain.Service
	checkLimiter     *rateLimiter
	reconcileLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	PaymentSvc   paymentdomain.Service
	WebhookSvc   paymentdomain.WebhookService
	ReconcileSvc paymentdomain.ReconcileService
	RoutingSvc   routingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		log:              p.Log.Named("server"),
		paymentSvc:       p.PaymentSvc,
		webhookSvc:       p.WebhookSvc,
		reconcileSvc:     p.ReconcileSvc,
		routingSvc:       p.RoutingSvc,
		checkLimiter:     newRateLimiter(10, time.Minute),
		reconcileLimiter: newRateLimiter(2, time.Minute),
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Payments --------
	api.POST("/orders/:id/intent", s.CreateOrderIntent)
	api.POST("/payments/intent", s.CreatePaymentIntent)
	api.GET("/payments/:id", s.GetPayment)
	api.POST("/payments/:id/check", s.CheckPayment)
	api.POST("/payments/reconcile", s.ReconcilePayments)

	// -------- Tenant bank routing --------
	api.PUT("/tenants/:id/bank-config", s.UpsertBankConfig)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/transfers", s.HandleTransferWebhook)
}
