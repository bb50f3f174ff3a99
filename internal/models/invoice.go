package models

import "time"

// Invoice is a billing document sent to a client.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID and InvoiceNumber share a unique index: numbers are unique per owner.
	UserID        uint   `gorm:"not null;uniqueIndex:idx_invoices_user_number,priority:1" json:"user_id"`
	InvoiceNumber string `gorm:"size:50;not null;uniqueIndex:idx_invoices_user_number,priority:2" json:"invoice_number"`

	ClientID  uint     `gorm:"index;not null" json:"client_id"`
	Client    *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID *uint    `gorm:"index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	IssueDate Date          `gorm:"not null" json:"issue_date"`
	DueDate   Date          `gorm:"not null;index" json:"due_date"`
	Currency  string        `gorm:"size:3;not null" json:"currency"`
	Status    InvoiceStatus `gorm:"size:20;not null;index" json:"status"`

	Amounts

	Notes string `gorm:"type:text" json:"notes,omitempty"`
	Terms string `gorm:"type:text" json:"terms,omitempty"`

	// Lifecycle timestamps
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	OverdueAt   *time.Time `json:"overdue_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
}

func (i *Invoice) GetUserID() uint   { return i.UserID }
func (i *Invoice) SetUserID(id uint) { i.UserID = id }

// CanEdit returns true if the invoice content can still be changed.
func (i *Invoice) CanEdit() bool { return i.Status == InvoiceStatusDraft }

// InvoiceItem is a line on an invoice.
type InvoiceItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	LineItem
}
