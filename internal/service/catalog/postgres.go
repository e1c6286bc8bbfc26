package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/service/database"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresSource reads each catalog from its own table. The column set comes
// from information_schema, so the secondary key reflects the table schema.
type PostgresSource struct {
	db     *sql.DB
	tables map[string]string
	logger *zap.Logger
}

func NewPostgresSource(postgres *database.PostgresService, tables map[string]string, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{
		db:     postgres.GetDB(),
		tables: tables,
		logger: logger,
	}
}

func (s *PostgresSource) Load(ctx context.Context, name string) (*Catalog, error) {
	table := s.tables[name]
	if table == "" {
		table = name
	}
	if !identifierPattern.MatchString(table) {
		return nil, errors.NewServiceError(fmt.Sprintf("invalid table name %q", table), "catalog", "load", nil)
	}

	columns, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, errors.NewServiceError("failed to read catalog schema", "catalog", "schema", err)
	}
	if len(columns) == 0 {
		return nil, errors.NewServiceError(fmt.Sprintf("catalog table %q not found", table), "catalog", "schema", nil)
	}

	rows, err := s.readRows(ctx, table, columns)
	if err != nil {
		return nil, errors.NewServiceError("failed to read catalog rows", "catalog", "load", err)
	}

	cat := New(name, columns, rows)
	s.logger.Info("Catalog loaded from PostgreSQL",
		zap.String("catalog", name),
		zap.String("table", table),
		zap.Int("rows", cat.Len()),
		zap.String("secondary_key", cat.SecondaryKey()),
	)
	return cat, nil
}

func (s *PostgresSource) tableColumns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]string, 0)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (s *PostgresSource) readRows(ctx context.Context, table string, columns []string) ([]domain.ProviderRecord, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), pq.QuoteIdentifier(table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProviderRecord, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(domain.ProviderRecord, len(columns))
		for i, col := range columns {
			record[col] = convertValue(values[i], types[i].DatabaseTypeName())
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// convertValue maps driver values onto the ProviderRecord cell types.
func convertValue(v any, dbType string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case bool:
		return val
	case []byte:
		return convertText(string(val), dbType)
	case string:
		return convertText(val, dbType)
	default:
		return fmt.Sprint(val)
	}
}

func convertText(s, dbType string) any {
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL", "FLOAT4", "FLOAT8", "INT2", "INT4", "INT8":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
