package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jonathan/catalog-tracker/internal/types"
)

// Accepted header names per seller column, preferred name first.
var sellerColumnAliases = map[string][]string{
	"name":           {"name", "seller_name"},
	"city":           {"city", "seller_city"},
	"contact":        {"contact", "seller_contact"},
	"catalogue_link": {"catalogue_link", "catalogue_url"},
}

// SellerRows is the result of reading a seller CSV.
type SellerRows struct {
	Sellers []types.Seller
	// Skipped holds the zero-based data row numbers that had no catalogue URL.
	Skipped []int
}

// LoadSellersCSV reads a seller CSV file.
func LoadSellersCSV(path string) (*SellerRows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("failed to open file %s", path),
			Cause:   err,
		}
	}
	defer func() { _ = f.Close() }()

	return ReadSellersCSV(f)
}

// ReadSellersCSV parses seller rows. The name and catalogue link columns must be
// present under one of their accepted names. Rows without a catalogue URL are
// skipped and rows without a name get a positional one.
func ReadSellersCSV(r io.Reader) (*SellerRows, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Message: "seller CSV is empty"}
		}
		return nil, &LoadError{Message: "failed to read CSV header", Cause: err}
	}

	cols := resolveColumns(header)
	var missing []string
	for _, required := range []string{"name", "catalogue_link"} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{
			Message: fmt.Sprintf("missing required columns %v (available: %v)", missing, header),
		}
	}

	rows := &SellerRows{}
	for index := 0; ; index++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Message: fmt.Sprintf("failed to read CSV row %d", index), Cause: err}
		}

		field := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		catalogueURL := field("catalogue_link")
		if catalogueURL == "" {
			rows.Skipped = append(rows.Skipped, index)
			continue
		}
		name := field("name")
		if name == "" {
			name = fmt.Sprintf("Seller_%d", index)
		}

		rows.Sellers = append(rows.Sellers, types.Seller{
			Name:         name,
			City:         field("city"),
			Contact:      field("contact"),
			CatalogueURL: catalogueURL,
			IsActive:     true,
		})
	}

	return rows, nil
}

// resolveColumns maps canonical column names to header positions.
func resolveColumns(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := positions[h]; !ok {
			positions[h] = i
		}
	}

	cols := make(map[string]int, len(sellerColumnAliases))
	for col, aliases := range sellerColumnAliases {
		for _, alias := range aliases {
			if i, ok := positions[alias]; ok {
				cols[col] = i
				break
			}
		}
	}
	return cols
}

// SellerUpserter persists one seller keyed by name.
type SellerUpserter interface {
	UpsertSellerByName(ctx context.Context, s *types.Seller) (bool, error)
}

// LoadSummary reports a seller load.
type LoadSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Processed returns the number of sellers written.
func (s LoadSummary) Processed() int {
	return s.Inserted + s.Updated
}

// SellerLoader upserts sellers one row at a time.
type SellerLoader struct {
	sellers SellerUpserter
	logger  *slog.Logger
}

// NewSellerLoader creates a SellerLoader.
func NewSellerLoader(sellers SellerUpserter, logger *slog.Logger) *SellerLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SellerLoader{sellers: sellers, logger: logger}
}

// Load upserts every seller. A failing row is logged and counted; only a
// cancelled context stops the load.
func (l *SellerLoader) Load(ctx context.Context, sellers []types.Seller) (*LoadSummary, error) {
	summary := &LoadSummary{}
	for i := range sellers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		s := sellers[i]
		inserted, err := l.sellers.UpsertSellerByName(ctx, &s)
		if err != nil {
			summary.Failed++
			l.logger.Warn("sellers.load.row_failed", "row", i, "name", s.Name, "err", err)
			continue
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Updated++
		}
	}

	l.logger.Info("sellers.load.ok",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"failed", summary.Failed,
	)
	return summary, nil
}
