package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"go.uber.org/zap"
)

// CSVSource reads catalogs from CSV files keyed by catalog name.
type CSVSource struct {
	paths  map[string]string
	logger *zap.Logger
}

func NewCSVSource(paths map[string]string, logger *zap.Logger) *CSVSource {
	return &CSVSource{paths: paths, logger: logger}
}

func (s *CSVSource) Load(_ context.Context, name string) (*Catalog, error) {
	path, ok := s.paths[name]
	if !ok || path == "" {
		return nil, errors.NewServiceError(fmt.Sprintf("no CSV path for catalog %q", name), "catalog", "load", nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewServiceError("failed to open catalog file", "catalog", "load", err)
	}
	defer file.Close()

	cat, err := ReadCSV(name, file)
	if err != nil {
		return nil, errors.NewServiceError(fmt.Sprintf("failed to read catalog %s", path), "catalog", "load", err)
	}

	s.logger.Info("Catalog loaded from CSV",
		zap.String("catalog", name),
		zap.String("path", path),
		zap.Int("rows", cat.Len()),
		zap.String("secondary_key", cat.SecondaryKey()),
	)
	return cat, nil
}

// ReadCSV parses a header-first CSV. A column whose non-empty cells all
// parse as numbers becomes numeric; empty cells become nil.
func ReadCSV(name string, r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog %s is empty", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	numeric := numericColumns(len(columns), records)

	rows := make([]domain.ProviderRecord, 0, len(records))
	for _, rec := range records {
		row := make(domain.ProviderRecord, len(columns))
		for i, col := range columns {
			row[col] = cellValue(rec[i], numeric[i])
		}
		rows = append(rows, row)
	}

	return New(name, columns, rows), nil
}

func numericColumns(width int, records [][]string) []bool {
	numeric := make([]bool, width)
	for i := range numeric {
		seen := false
		numeric[i] = true
		for _, rec := range records {
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[i] = false
				break
			}
		}
		if !seen {
			numeric[i] = false
		}
	}
	return numeric
}

func cellValue(raw string, numeric bool) any {
	cell := strings.TrimSpace(raw)
	if cell == "" {
		return nil
	}
	if numeric {
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}
