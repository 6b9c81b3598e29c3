package remote

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/omnidesk/internal/common"
)

// Encode converts a typed value into a Row through its JSON form.
func Encode(v any) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	row := Row{}
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return row, nil
}

// Decode converts a Row into T through its JSON form.
func Decode[T any](row Row) (T, error) {
	var out T
	b, err := json.Marshal(row)
	if err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}

// DecodeAll decodes every row, failing on the first bad one.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		v, err := Decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// StripMetadata returns a copy of row without the backend-owned columns.
func StripMetadata(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, c := range common.MetadataColumns {
		delete(out, c)
	}
	return out
}

// Clone returns a deep copy of row, so that callers can never alias data
// held by a store or cache.
func Clone(row Row) Row {
	if row == nil {
		return nil
	}
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Clone(Row(t)))
	case Row:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
