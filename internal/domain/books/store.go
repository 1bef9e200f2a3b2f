package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Book, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var b Book
	var price string
	err := r.db.QueryRow(ctx, `
SELECT id, title, author, description, price::text, cover_url, active, created_at, updated_at
FROM books
WHERE id = $1
`, id).Scan(&b.ID, &b.Title, &b.Author, &b.Description, &price, &b.CoverURL, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	b.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse book price: %w", err)
	}
	return &b, nil
}

func (r *Repository) List(ctx context.Context, includeInactive bool, limit, offset int) ([]Book, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	if !includeInactive {
		where = "active = true"
	}

	q := fmt.Sprintf(`
SELECT id, title, author, description, price::text, cover_url, active, created_at, updated_at,
       COUNT(*) OVER() AS total
FROM books
WHERE %s
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`, where)

	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []Book
	total := 0
	for rows.Next() {
		var b Book
		var price string
		var t int
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &price, &b.CoverURL, &b.Active, &b.CreatedAt, &b.UpdatedAt, &t); err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		if b.Price, err = decimal.NewFromString(price); err != nil {
			return nil, 0, fmt.Errorf("parse book price: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *Repository) Create(ctx context.Context, b *Book) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
INSERT INTO books (id, title, author, description, price, active)
VALUES ($1, $2, $3, $4, $5::numeric, $6)
RETURNING created_at, updated_at
`, b.ID, b.Title, b.Author, b.Description, b.Price.String(), b.Active).Scan(&b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateID
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Update applies a whitelisted partial update, mirroring the PATCH payload.
func (r *Repository) Update(ctx context.Context, id string, updates map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	allowed := map[string]bool{
		"title": true, "author": true, "description": true, "price": true, "active": true,
	}

	set := []string{}
	args := []any{id}
	arg := 2
	for col, val := range updates {
		if !allowed[col] {
			return fmt.Errorf("column %q cannot be updated", col)
		}
		if d, ok := val.(decimal.Decimal); ok {
			val = d.String()
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, arg))
		args = append(args, val)
		arg++
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = now()")

	q := fmt.Sprintf("UPDATE books SET %s WHERE id = $1", strings.Join(set, ", "))
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetCover(ctx context.Context, id string, coverURL *string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE books SET cover_url = $2, updated_at = now() WHERE id = $1
`, id, coverURL)
	if err != nil {
		return fmt.Errorf("set book cover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
UPDATE books SET active = $2, updated_at = now() WHERE id = $1
`, id, active)
	if err != nil {
		return fmt.Errorf("set book active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
