package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt records a payment received from a client.
type Receipt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        uint   `gorm:"not null;uniqueIndex:idx_receipts_user_number,priority:1" json:"user_id"`
	ReceiptNumber string `gorm:"size:50;not null;uniqueIndex:idx_receipts_user_number,priority:2" json:"receipt_number"`

	ClientID  uint    `gorm:"index;not null" json:"client_id"`
	Client    *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	InvoiceID *uint   `gorm:"index" json:"invoice_id,omitempty"`
	QuoteID   *uint   `gorm:"index" json:"quote_id,omitempty"`

	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	PaymentDate   Date            `gorm:"not null" json:"payment_date"`
	Reference     string          `gorm:"size:255" json:"reference,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
}

func (r *Receipt) GetUserID() uint   { return r.UserID }
func (r *Receipt) SetUserID(id uint) { r.UserID = id }
