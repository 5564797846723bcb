package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/catalog-tracker/internal/store"
	"github.com/jonathan/catalog-tracker/internal/types"
)

// passTx implements store.Tx over a pgx transaction.
type passTx struct {
	tx pgx.Tx
}

var productCopyColumns = []string{
	"id", "seller_id", "scrape_job_id", "title", "price", "description",
	"images", "product_link", "is_out_of_stock", "metadata", "photo_count",
	"scraped_at", "last_seen_scrape_job_id", "is_removed", "removed_at",
	"created_at", "updated_at",
}

// MarkMissingAsRemoved removes active products of the scoped sellers whose link
// is NULL or absent from links. removal_count is read after the increment, so a
// value of 1 identifies a first removal.
func (t *passTx) MarkMissingAsRemoved(ctx context.Context, sellerIDs []uuid.UUID, _ uuid.UUID, links []string, at time.Time) (store.RemovalCounts, error) {
	if links == nil {
		links = []string{}
	}
	var counts store.RemovalCounts
	err := t.tx.QueryRow(ctx,
		`WITH marked AS (
		     UPDATE products
		        SET is_removed = true,
		            removed_at = $3,
		            removal_count = removal_count + 1,
		            updated_at = $3
		      WHERE seller_id = ANY($1::uuid[])
		        AND COALESCE(is_removed, false) = false
		        AND (product_link IS NULL OR NOT (product_link = ANY($2::text[])))
		     RETURNING removal_count
		 )
		 SELECT count(*), count(*) FILTER (WHERE removal_count = 1) FROM marked`,
		uuidStrings(sellerIDs), links, at,
	).Scan(&counts.Marked, &counts.Newly)
	if err != nil {
		return store.RemovalCounts{}, fmt.Errorf("failed to mark missing products: %w", classify(err))
	}
	return counts, nil
}

// MarkReappearedAsActive reactivates removed products whose link is in links.
func (t *passTx) MarkReappearedAsActive(ctx context.Context, jobID uuid.UUID, links []string, at time.Time) (int, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE products
		    SET is_removed = false,
		        removed_at = NULL,
		        last_seen_scrape_job_id = $1,
		        updated_at = $3
		  WHERE is_removed = true
		    AND product_link IS NOT NULL
		    AND product_link = ANY($2::text[])`,
		jobID, links, at,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark reappeared products: %w", classify(err))
	}
	return int(tag.RowsAffected()), nil
}

// ProductIDsByLink maps each known link to its product id.
func (t *passTx) ProductIDsByLink(ctx context.Context, links []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(links))
	if len(links) == 0 {
		return out, nil
	}

	rows, err := t.tx.Query(ctx,
		`SELECT product_link, id FROM products WHERE product_link = ANY($1::text[])`,
		links,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product links: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var link string
		var id uuid.UUID
		if err := rows.Scan(&link, &id); err != nil {
			return nil, fmt.Errorf("failed to scan product link: %w", err)
		}
		out[link] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to look up product links: %w", classify(err))
	}
	return out, nil
}

// InsertProducts bulk-loads new products with COPY.
func (t *passTx) InsertProducts(ctx context.Context, products []types.Product) error {
	if len(products) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(products))
	for i := range products {
		row, err := productCopyRow(&products[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"products"},
		productCopyColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert products: %w", classify(err))
	}
	return nil
}

func productCopyRow(p *types.Product) ([]any, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	images, metadata, err := productJSON(p)
	if err != nil {
		return nil, err
	}

	removed := p.Removed()
	var removedAt *time.Time
	if removed {
		removedAt = p.RemovedAt
		if removedAt == nil {
			now := time.Now().UTC()
			removedAt = &now
		}
	}
	var link *string
	if p.HasLink() {
		link = p.Link
	}
	now := time.Now().UTC()
	createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return []any{
		p.ID, p.SellerID, p.ScrapeJobID, p.Title, p.Price, p.Description,
		images, link, p.IsOutOfStock, metadata, p.PhotoCount,
		p.ScrapedAt, p.LastSeenScrapeJobID, removed, removedAt,
		createdAt, updatedAt,
	}, nil
}

func productJSON(p *types.Product) ([]byte, []byte, error) {
	imgs := p.Images
	if imgs == nil {
		imgs = []string{}
	}
	images, err := json.Marshal(imgs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal images for product %s: %w", p.ID, err)
	}
	meta := p.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metadata for product %s: %w", p.ID, err)
	}
	return images, metadata, nil
}

// UpdateProducts refreshes the descriptive columns of existing products. The
// lifecycle columns are left to the reconciler.
func (t *passTx) UpdateProducts(ctx context.Context, products []types.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range products {
		p := &products[i]
		images, metadata, err := productJSON(p)
		if err != nil {
			return err
		}
		batch.Queue(
			`UPDATE products SET
			     seller_id = $2,
			     scrape_job_id = $3,
			     title = $4,
			     price = $5,
			     description = $6,
			     images = $7,
			     is_out_of_stock = $8,
			     metadata = $9,
			     photo_count = $10,
			     scraped_at = $11,
			     last_seen_scrape_job_id = $12
			 WHERE id = $1`,
			p.ID, p.SellerID, p.ScrapeJobID, p.Title, p.Price, p.Description,
			images, p.IsOutOfStock, metadata, p.PhotoCount, p.ScrapedAt, p.LastSeenScrapeJobID,
		)
	}

	results := t.tx.SendBatch(ctx, batch)
	for i := range products {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to update product %s: %w", products[i].ID, classify(err))
		}
		if tag.RowsAffected() == 0 {
			_ = results.Close()
			return fmt.Errorf("product not found: %s", products[i].ID)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to update products: %w", classify(err))
	}
	return nil
}

// GetProductByLink retrieves a product by its link
func (db *DB) GetProductByLink(ctx context.Context, link string) (*types.Product, error) {
	p, err := scanProduct(db.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_link = $1`, link))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProductsBySeller retrieves all products of a seller, newest first
func (db *DB) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, includeRemoved bool) ([]types.Product, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE seller_id = $1 AND ($2 OR COALESCE(is_removed, false) = false)
		 ORDER BY created_at DESC, id`,
		sellerID, includeRemoved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

const productColumns = `id, seller_id, scrape_job_id, COALESCE(title, ''), COALESCE(price, ''),
	COALESCE(description, ''), images, product_link, is_out_of_stock, metadata, photo_count,
	scraped_at, last_seen_scrape_job_id, is_removed, removed_at, removal_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*types.Product, error) {
	var p types.Product
	var jobID *uuid.UUID
	var images, metadata []byte
	err := row.Scan(&p.ID, &p.SellerID, &jobID, &p.Title, &p.Price, &p.Description,
		&images, &p.Link, &p.IsOutOfStock, &metadata, &p.PhotoCount,
		&p.ScrapedAt, &p.LastSeenScrapeJobID, &p.IsRemoved, &p.RemovedAt, &p.RemovalCount,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if jobID != nil {
		p.ScrapeJobID = *jobID
	}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &p.Images)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &p.Metadata)
	}
	return &p, nil
}
