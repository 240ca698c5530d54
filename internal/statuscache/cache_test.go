package statuscache_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/statuscache"
)

func TestDisabledCacheIsTransparent(t *testing.T) {
	node, err := snowflake.NewNode(31)
	require.NoError(t, err)

	cache := statuscache.New(statuscache.Params{
		Client: nil,
		Log:    zap.NewNop(),
		Tuning: nil,
	})

	ctx := context.Background()
	id := node.Generate()

	// all operations must be safe no-ops without redis
	cache.Set(ctx, &paymentdomain.PaymentView{PaymentID: id, Status: paymentdomain.StatusCompleted})
	_, ok := cache.Get(ctx, id)
	require.False(t, ok)
	cache.Del(ctx, id)
}

func TestNilCacheIsTransparent(t *testing.T) {
	node, err := snowflake.NewNode(32)
	require.NoError(t, err)

	var cache *statuscache.Cache
	ctx := context.Background()
	id := node.Generate()

	cache.Set(ctx, &paymentdomain.PaymentView{PaymentID: id, Status: paymentdomain.StatusPending})
	_, ok := cache.Get(ctx, id)
	require.False(t, ok)
	cache.Del(ctx, id)
}
