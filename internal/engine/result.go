package engine

import "database/sql"

// Result is the uniform output of any query: ordered column names plus one
// map per row. Maps honor SQL aliases as returned by the engine; Columns
// preserves the select-list order the maps cannot.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// RowCount returns the number of data rows.
func (r Result) RowCount() int { return len(r.Rows) }

// collectRows drains rows into a Result, zipping each row's values with the
// shared column names. []byte values are converted to string so callers see
// text, not raw bytes.
func collectRows(rows *sql.Rows) (Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}

	res := Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return res, nil
}
