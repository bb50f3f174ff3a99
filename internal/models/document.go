package models

import "github.com/shopspring/decimal"

// Amounts are the derived money columns shared by invoices and quotes.
// TotalAmount always equals Subtotal - DiscountAmount + TaxAmount, floored at zero.
type Amounts struct {
	Subtotal       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TaxRate        decimal.NullDecimal `gorm:"type:decimal(6,4)" json:"tax_rate"`
	TaxAmount      decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
}

// LineItem holds the fields common to invoice and quote lines.
// Amount is derived from quantity, unit price and the optional line rates.
type LineItem struct {
	Description  string              `gorm:"size:500;not null" json:"description"`
	Quantity     decimal.Decimal     `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice    decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TaxRate      decimal.NullDecimal `gorm:"type:decimal(6,4)" json:"tax_rate"`
	DiscountRate decimal.NullDecimal `gorm:"type:decimal(6,4)" json:"discount_rate"`
	Amount       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Position     int                 `gorm:"not null;default:0" json:"position"`
}
