package models

import "time"

// Client is a customer billed by a user.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this client
	UserID uint `gorm:"index;not null" json:"user_id"`

	BusinessName string `gorm:"size:255;not null" json:"business_name"`
	ContactName  string `gorm:"size:255" json:"contact_name,omitempty"`
	Email        string `gorm:"size:255" json:"email,omitempty"`
	Phone        string `gorm:"size:50" json:"phone,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	TaxID  string       `gorm:"size:50" json:"tax_id,omitempty"`
	Notes  string       `gorm:"type:text" json:"notes,omitempty"`
	Status ClientStatus `gorm:"size:20;not null;index" json:"status"`
}

func (c *Client) GetUserID() uint   { return c.UserID }
func (c *Client) SetUserID(id uint) { c.UserID = id }

// FullAddress returns the formatted full address.
func (c *Client) FullAddress() string {
	addr := c.Address
	if c.PostalCode != "" || c.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.PostalCode
		if c.PostalCode != "" && c.City != "" {
			addr += " "
		}
		addr += c.City
	}
	if c.Country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.Country
	}
	return addr
}
