package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog row. The checkout core only ever reads products; the
// price column is the authoritative unit price for all server-side pricing.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string         `json:"description,omitempty"`
	SKU          *string         `gorm:"type:varchar(64)" json:"sku,omitempty"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category     *string         `gorm:"type:varchar(100)" json:"category,omitempty"`
	ImageURLs    []string        `gorm:"serializer:json" json:"image_urls,omitempty"`
	BigImageURLs []string        `gorm:"serializer:json" json:"big_image_urls,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PrimaryImage returns the best image reference for provider-facing use,
// preferring the large variant.
func (p *Product) PrimaryImage() string {
	if len(p.BigImageURLs) > 0 {
		return p.BigImageURLs[0]
	}
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}

// ProductSummary is the trimmed product shape embedded in cart responses.
type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Summary builds the response shape from a catalog row.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.PrimaryImage(),
	}
}
