package models

import "time"

type Product struct {
	ID             int       `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Slug           string    `json:"slug" db:"slug"`
	Category       string    `json:"category" db:"category"`
	BasePriceCents int       `json:"base_price_cents" db:"base_price_cents"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	ImageKey *string `json:"-" db:"image_key"`
	ImageURL *string `json:"image_url,omitempty" db:"-"`
}
