package database

import "encoding/json"

// MarshalJSONB and UnmarshalJSONB are the jsonb (de)serialization
// helpers pkg/session uses for Session sub-documents. Centralized here
// so every jsonb column goes through one error path.

// MarshalJSONB encodes v for storage in a jsonb column. A nil v encodes
// to the JSON null literal, never an empty byte slice (pgx is picky
// about the distinction).
func MarshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSONB decodes a jsonb column's raw bytes into dst. Empty or
// nil input (column was NULL) is a no-op, leaving dst at its zero
// value.
func UnmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
