package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project groups work for a client. The client is optional.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`

	ClientID    *uint               `gorm:"index" json:"client_id,omitempty"`
	Name        string              `gorm:"size:255;not null" json:"name"`
	Description string              `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus       `gorm:"size:20;not null;index" json:"status"`
	StartDate   *Date               `json:"start_date,omitempty"`
	EndDate     *Date               `json:"end_date,omitempty"`
	Budget      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"budget"`
}

func (p *Project) GetUserID() uint   { return p.UserID }
func (p *Project) SetUserID(id uint) { p.UserID = id }
