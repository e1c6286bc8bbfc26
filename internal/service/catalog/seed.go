package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"github.com/lib/pq"
)

const (
	columnTypeNumeric = "DOUBLE PRECISION"
	columnTypeBoolean = "BOOLEAN"
	columnTypeText    = "TEXT"
)

// ColumnTypes picks a Postgres type for each catalog column. A column is
// numeric or boolean only when every non-null cell is; all-null columns are
// TEXT.
func ColumnTypes(cat *Catalog) []string {
	columns := cat.Columns()
	types := make([]string, len(columns))

	for i, col := range columns {
		seenNumber, seenBool, seenOther := false, false, false
		for _, row := range cat.Rows() {
			switch row[col].(type) {
			case nil:
			case float64:
				seenNumber = true
			case bool:
				seenBool = true
			default:
				seenOther = true
			}
		}

		switch {
		case seenOther || (seenNumber && seenBool):
			types[i] = columnTypeText
		case seenNumber:
			types[i] = columnTypeNumeric
		case seenBool:
			types[i] = columnTypeBoolean
		default:
			types[i] = columnTypeText
		}
	}
	return types
}

// WriteTable creates table if needed and bulk-copies the catalog rows into
// it inside one transaction. With replace set, existing rows are removed
// first. Returns the number of rows written.
func WriteTable(ctx context.Context, db *sql.DB, table string, cat *Catalog, replace bool) (int, error) {
	if !identifierPattern.MatchString(table) {
		return 0, errors.NewServiceError(fmt.Sprintf("invalid table name %q", table), "catalog", "seed", nil)
	}

	columns := cat.Columns()
	types := ColumnTypes(cat)

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), types[i])
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewServiceError("failed to begin transaction", "catalog", "seed", err)
	}
	defer tx.Rollback()

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return 0, errors.NewServiceError("failed to create catalog table", "catalog", "seed", err)
	}

	if replace {
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+pq.QuoteIdentifier(table)); err != nil {
			return 0, errors.NewServiceError("failed to truncate catalog table", "catalog", "seed", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return 0, errors.NewServiceError("failed to prepare copy", "catalog", "seed", err)
	}

	for _, row := range cat.Rows() {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = copyValue(row[col], types[i])
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			_ = stmt.Close()
			return 0, errors.NewServiceError("failed to copy catalog row", "catalog", "seed", err)
		}
	}

	// flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, errors.NewServiceError("failed to flush catalog rows", "catalog", "seed", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, errors.NewServiceError("failed to close copy", "catalog", "seed", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewServiceError("failed to commit catalog seed", "catalog", "seed", err)
	}
	return cat.Len(), nil
}

func copyValue(v any, columnType string) any {
	if v == nil {
		return nil
	}
	if columnType == columnTypeText {
		return fmt.Sprint(v)
	}
	return v
}
