package repository

import (
	"context"

	"github.com/storelabs/storefront/internal/domain/entity"
)

// CategoryRepository manages catalog categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *entity.Category) error
	Update(ctx context.Context, c *entity.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Category, error)
	List(ctx context.Context) ([]entity.Category, error)
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID string
	Limit      int
	Offset     int
}

// ProductRepository manages catalog products.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, f ProductFilter) ([]entity.Product, int, error)
}

// ReviewRepository manages product reviews. Upsert replaces a user's previous
// review of the same product and recomputes the product's rating aggregates
// in the same transaction.
type ReviewRepository interface {
	Upsert(ctx context.Context, r *entity.Review) error
	ListByProduct(ctx context.Context, productID string) ([]entity.Review, error)
}
