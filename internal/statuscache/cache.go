package statuscache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tabpay/tabpay/internal/config"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
)

// Cache is a read-through cache for payment status lookups. Every failure
// degrades to a miss; the database stays the source of truth.
type Cache struct {
	client *redis.Client
	log    *zap.Logger
	tuning *config.TuningHolder
}

type Params struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Log    *zap.Logger
	Tuning *config.TuningHolder
}

func New(p Params) *Cache {
	return &Cache{
		client: p.Client,
		log:    p.Log.Named("payment.statuscache"),
		tuning: p.Tuning,
	}
}

func key(paymentID snowflake.ID) string {
	return fmt.Sprintf("payment:status:%s", paymentID)
}

// Get returns the cached view and whether it was present.
func (c *Cache) Get(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.PaymentView, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key(paymentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("status cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var view paymentdomain.PaymentView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.log.Debug("status cache decode failed", zap.Error(err))
		return nil, false
	}
	return &view, true
}

func (c *Cache) Set(ctx context.Context, view *paymentdomain.PaymentView) {
	if c == nil || c.client == nil || view == nil {
		return
	}

	raw, err := json.Marshal(view)
	if err != nil {
		c.log.Debug("status cache encode failed", zap.Error(err))
		return
	}

	ttl := c.tuning.Current().StatusCacheTTL()
	if err := c.client.Set(ctx, key(view.PaymentID), raw, ttl).Err(); err != nil {
		c.log.Debug("status cache write failed", zap.Error(err))
	}
}

// Del drops the cached view after a transition so readers never observe a
// stale status.
func (c *Cache) Del(ctx context.Context, paymentID snowflake.ID) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, key(paymentID)).Err(); err != nil {
		c.log.Debug("status cache invalidate failed", zap.Error(err))
	}
}

var Module = fx.Module("payment.statuscache",
	fx.Provide(New),
)
