package jsonl

import "fmt"

// Columns converts row-oriented records into a column-oriented mapping
// from field name to the list of that field's values, one per record.
// Fields missing from a record contribute a nil at that row's position,
// so every column has the same length.
func Columns(rows []Record) map[string][]any {
	cols := make(map[string][]any)

	for i, rec := range rows {
		for field, value := range rec {
			// Pre-sizing to len(rows) leaves nil in every row where the
			// field is absent.
			if _, ok := cols[field]; !ok {
				cols[field] = make([]any, len(rows))
			}
			cols[field][i] = value
		}
	}
	return cols
}

// Rows converts column-oriented data back into row-oriented records.
// All columns must have the same length.
func Rows(cols map[string][]any) ([]Record, error) {
	n := -1
	for field, values := range cols {
		if n == -1 {
			n = len(values)
			continue
		}
		if len(values) != n {
			return nil, fmt.Errorf("column %q has %d values, expected %d", field, len(values), n)
		}
	}

	if n <= 0 {
		return nil, nil
	}

	rows := make([]Record, n)
	for i := range rows {
		rows[i] = make(Record, len(cols))
	}
	for field, values := range cols {
		for i, v := range values {
			rows[i][field] = v
		}
	}
	return rows, nil
}
