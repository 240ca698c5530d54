package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReceived  Status = "RECEIVED"
	StatusPreparing Status = "PREPARING"
	StatusServed    Status = "SERVED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

type Order struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	TenantID      snowflake.ID      `json:"tenant_id" gorm:"not null;index"`
	TableCode     string            `json:"table_code"`
	Status        Status            `json:"status" gorm:"not null"`
	PaymentStatus PaymentStatus     `json:"payment_status" gorm:"not null"`
	TotalAmount   int64             `json:"total_amount" gorm:"not null"`
	Currency      string            `json:"currency" gorm:"not null"`
	Metadata      datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

type StatusHistory struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID    snowflake.ID `json:"order_id" gorm:"not null;index"`
	FromStatus Status       `json:"from_status"`
	ToStatus   Status       `json:"to_status" gorm:"not null"`
	Reason     string       `json:"reason"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null"`
}

func (StatusHistory) TableName() string { return "order_status_history" }

var (
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrOrderNotPayable = errors.New("order_not_payable")
)
