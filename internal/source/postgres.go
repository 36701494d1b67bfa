package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// PostgresLoader reads sources from tables holding the provider exports
// verbatim, one column per provider column.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

// NewPostgresLoader creates a loader over pool.
func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

// Name implements Loader.
func (l *PostgresLoader) Name() string { return "postgres" }

// Load implements Loader. Every value is rendered as text so that the
// normalizer sees the same cells as it would from a CSV file.
func (l *PostgresLoader) Load(ctx context.Context, def core.SourceDefinition) (core.RawTable, error) {
	table := def.Info.Table
	if table == "" {
		return core.RawTable{}, fmt.Errorf("%w: %s has no table", core.ErrUnknownSource, def.Info.Key)
	}

	query := "SELECT * FROM " + pgx.Identifier{table}.Sanitize()
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("query %s: %w", def.Info.Key, err)
	}
	defer rows.Close()

	t := core.RawTable{Name: def.Info.Key}
	for _, fd := range rows.FieldDescriptions() {
		t.Header = append(t.Header, fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return core.RawTable{}, fmt.Errorf("scan %s: %w", def.Info.Key, err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cellText(v)
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return core.RawTable{}, fmt.Errorf("read %s: %w", def.Info.Key, err)
	}

	if !hasCodeColumn(t.Header, def.Schema.CodeColumns) {
		return core.RawTable{}, &core.SchemaMismatchError{Table: def.Info.Key, Column: table, Reason: "has no country code column"}
	}
	return t, nil
}

// cellText renders a scanned value the way a CSV export would.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// hasCodeColumn reports whether header carries a country code column.
// Matching ignores case like the CSV path does, since Postgres folds unquoted
// identifiers to lower case.
func hasCodeColumn(header, codeColumns []string) bool {
	for _, h := range header {
		if strings.EqualFold(h, core.ColCode) {
			return true
		}
		for _, n := range codeColumns {
			if strings.EqualFold(h, n) {
				return true
			}
		}
	}
	return false
}
