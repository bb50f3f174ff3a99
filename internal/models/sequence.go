package models

import "time"

// DocumentSequence is the per-owner, per-type numbering counter.
type DocumentSequence struct {
	ID        uint         `gorm:"primaryKey"`
	UpdatedAt time.Time
	UserID    uint         `gorm:"not null;uniqueIndex:idx_document_sequences_owner_type,priority:1"`
	DocType   DocumentType `gorm:"size:20;not null;uniqueIndex:idx_document_sequences_owner_type,priority:2"`
	LastValue int64        `gorm:"not null"`
}

// All lists every model managed by migrations.
func All() []any {
	return []any{
		&User{}, &Client{}, &Project{},
		&Invoice{}, &InvoiceItem{},
		&Quote{}, &QuoteItem{},
		&Receipt{}, &AdminUser{}, &DocumentSequence{},
	}
}
