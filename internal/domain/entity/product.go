package entity

import "time"

// Product is a catalog item. Rating and NumReviews are aggregates maintained
// by the review repository in the same transaction as review writes.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	StockCount  int       `json:"stock_count"`
	CategoryID  string    `json:"category_id"`
	ImageURL    string    `json:"image_url"`
	Rating      float64   `json:"rating"`
	NumReviews  int       `json:"num_reviews"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
