package models

import "time"

// Quote is an estimate that a client may accept, reject or let expire.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      uint   `gorm:"not null;uniqueIndex:idx_quotes_user_number,priority:1" json:"user_id"`
	QuoteNumber string `gorm:"size:50;not null;uniqueIndex:idx_quotes_user_number,priority:2" json:"quote_number"`

	ClientID  uint     `gorm:"index;not null" json:"client_id"`
	Client    *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID *uint    `gorm:"index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	IssueDate  Date        `gorm:"not null" json:"issue_date"`
	ExpiryDate Date        `gorm:"not null;index" json:"expiry_date"`
	Currency   string      `gorm:"size:3;not null" json:"currency"`
	Status     QuoteStatus `gorm:"size:20;not null;index" json:"status"`

	Amounts

	Notes string `gorm:"type:text" json:"notes,omitempty"`
	Terms string `gorm:"type:text" json:"terms,omitempty"`

	SentAt     *time.Time `json:"sent_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty"`

	// ConvertedInvoiceID is set once an accepted quote has produced an invoice.
	ConvertedInvoiceID *uint `gorm:"index" json:"converted_invoice_id,omitempty"`

	Items []QuoteItem `gorm:"foreignKey:QuoteID" json:"items"`
}

func (q *Quote) GetUserID() uint   { return q.UserID }
func (q *Quote) SetUserID(id uint) { q.UserID = id }

func (q *Quote) CanEdit() bool { return q.Status == QuoteStatusDraft }

type QuoteItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuoteID uint `gorm:"index;not null" json:"quote_id"`
	LineItem
}
