package books

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("book not found")
	ErrDuplicateID       = errors.New("a book with that id already exists")
	QueryTimeoutDuration = time.Second * 5
)

// Book is one purchasable ebook in the catalog. ID is the public slug the
// storefront and the cart use; Price is in major currency units (USD).
type Book struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CoverURL    *string         `json:"cover_url,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Store interface {
	GetByID(ctx context.Context, id string) (*Book, error)
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]Book, int, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, id string, updates map[string]any) error
	SetCover(ctx context.Context, id string, coverURL *string) error
	SetActive(ctx context.Context, id string, active bool) error
}
