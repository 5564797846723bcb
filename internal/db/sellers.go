package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/catalog-tracker/internal/types"
)

// UpsertSellers inserts or refreshes the sellers of a scrape session by id.
func (t *passTx) UpsertSellers(ctx context.Context, sellers []types.Seller) error {
	for i := range sellers {
		s := &sellers[i]
		_, err := t.tx.Exec(ctx,
			`INSERT INTO sellers (id, name, city, contact, catalogue_url, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), COALESCE($8, NOW()))
			 ON CONFLICT (id) DO UPDATE SET
			     name = EXCLUDED.name,
			     city = EXCLUDED.city,
			     contact = EXCLUDED.contact,
			     catalogue_url = EXCLUDED.catalogue_url,
			     is_active = EXCLUDED.is_active`,
			s.ID, s.Name, nullIfEmpty(s.City), nullIfEmpty(s.Contact), s.CatalogueURL, s.IsActive,
			nullIfZero(s.CreatedAt), nullIfZero(s.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert seller %q: %w", s.Name, classify(err))
		}
	}
	return nil
}

// UpsertSellerByName inserts a seller or updates the one with the same name.
// It reports whether a new row was inserted.
func (db *DB) UpsertSellerByName(ctx context.Context, s *types.Seller) (bool, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var inserted bool
	err := db.pool.QueryRow(ctx,
		`INSERT INTO sellers (id, name, city, contact, catalogue_url, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE SET
		     city = EXCLUDED.city,
		     contact = EXCLUDED.contact,
		     catalogue_url = EXCLUDED.catalogue_url,
		     is_active = EXCLUDED.is_active
		 RETURNING id, (xmax = 0) AS inserted`,
		s.ID, s.Name, nullIfEmpty(s.City), nullIfEmpty(s.Contact), s.CatalogueURL, s.IsActive,
	).Scan(&s.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert seller %q: %w", s.Name, classify(err))
	}
	return inserted, nil
}

// SellerIDsByName maps each known seller name to its id.
func (db *DB) SellerIDsByName(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return out, nil
	}
	rows, err := db.pool.Query(ctx, `SELECT name, id FROM sellers WHERE name = ANY($1::text[])`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sellers: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var id uuid.UUID
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

// GetSeller retrieves a seller by ID
func (db *DB) GetSeller(ctx context.Context, id uuid.UUID) (*types.Seller, error) {
	s, err := scanSeller(db.pool.QueryRow(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return s, nil
}

// ListSellers retrieves sellers ordered by name
func (db *DB) ListSellers(ctx context.Context, activeOnly bool) ([]types.Seller, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+sellerColumns+` FROM sellers
		 WHERE ($1 = false OR is_active = true)
		 ORDER BY name`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", classify(err))
	}
	defer rows.Close()

	var sellers []types.Seller
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, *s)
	}
	return sellers, rows.Err()
}

// CountActiveSellers returns the number of active sellers
func (db *DB) CountActiveSellers(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM sellers WHERE is_active = true`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sellers: %w", classify(err))
	}
	return n, nil
}

const sellerColumns = `id, name, COALESCE(city, ''), COALESCE(contact, ''), catalogue_url, is_active, created_at, updated_at`

func scanSeller(row pgx.Row) (*types.Seller, error) {
	var s types.Seller
	if err := row.Scan(&s.ID, &s.Name, &s.City, &s.Contact, &s.CatalogueURL, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
