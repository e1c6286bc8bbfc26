package catalog

import (
	"context"

	"github.com/kapu/nyaay-triage-go/internal/domain"
)

// Catalog names used by the triage service.
const (
	NameLawyers = "lawyers"
	NameNGOs    = "ngos"
)

// Catalog is an immutable provider table. The secondary sort key is chosen
// from the column set once, at construction.
type Catalog struct {
	name         string
	columns      []string
	secondaryKey string
	rows         []domain.ProviderRecord
}

func New(name string, columns []string, rows []domain.ProviderRecord) *Catalog {
	cols := append([]string(nil), columns...)
	return &Catalog{
		name:         name,
		columns:      cols,
		secondaryKey: SecondaryKeyFor(cols),
		rows:         rows,
	}
}

// SecondaryKeyFor returns success_rate when the schema has it, else popularity.
func SecondaryKeyFor(columns []string) string {
	for _, c := range columns {
		if c == domain.ColumnSuccessRate {
			return domain.ColumnSuccessRate
		}
	}
	return domain.ColumnPopularity
}

func (c *Catalog) Name() string {
	return c.name
}

func (c *Catalog) Columns() []string {
	return append([]string(nil), c.columns...)
}

// Rows exposes the shared rows. Callers must not mutate them.
func (c *Catalog) Rows() []domain.ProviderRecord {
	return c.rows
}

func (c *Catalog) SecondaryKey() string {
	return c.secondaryKey
}

func (c *Catalog) Len() int {
	return len(c.rows)
}

// Source loads a named catalog.
type Source interface {
	Load(ctx context.Context, name string) (*Catalog, error)
}
