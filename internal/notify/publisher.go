package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
)

const completedChannel = "payments.completed"

// CompletedEvent is published after a settlement commits. Consumers drive
// kitchen displays and tenant dashboards off this channel.
type CompletedEvent struct {
	EventID   string        `json:"eventId"`
	PaymentID snowflake.ID  `json:"paymentId"`
	TenantID  snowflake.ID  `json:"tenantId"`
	SubjectID *snowflake.ID `json:"subjectId,omitempty"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Source    string        `json:"source"`
	PaidAt    time.Time     `json:"paidAt"`
}

// Publisher pushes settlement events over redis pub/sub. Delivery is best
// effort; a publish failure never affects the committed settlement.
type Publisher struct {
	client *redis.Client
	log    *zap.Logger
}

type Params struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Log    *zap.Logger
}

func New(p Params) *Publisher {
	return &Publisher{
		client: p.Client,
		log:    p.Log.Named("payment.notify"),
	}
}

func (p *Publisher) PaymentCompleted(ctx context.Context, payment *paymentdomain.Payment, source string) {
	if p == nil || p.client == nil {
		return
	}

	paidAt := time.Now().UTC()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}

	event := CompletedEvent{
		EventID:   uuid.NewString(),
		PaymentID: payment.ID,
		TenantID:  payment.TenantID,
		SubjectID: payment.SubjectID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Source:    source,
		PaidAt:    paidAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("marshal completed event failed", zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, completedChannel, payload).Err(); err != nil {
		p.log.Warn("publish completed event failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

var Module = fx.Module("payment.notify",
	fx.Provide(New),
)
