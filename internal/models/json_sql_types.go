package models

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NullString wraps sql.NullString so that it marshals to JSON null.
type NullString struct {
	sql.NullString
}

// NewNullString returns an invalid (NULL) value for the empty string.
func NewNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: s != ""}}
}

// MarshalJSON implements json.Marshaler for NullString.
func (ns NullString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.String)
}

// UnmarshalJSON implements json.Unmarshaler for NullString.
func (ns *NullString) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != nil {
		ns.String = *s
		ns.Valid = true
	} else {
		ns.Valid = false
	}
	return nil
}

// Value implements driver.Valuer, storing the metadata as a JSON object.
func (m *ClickMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Scan implements sql.Scanner. Anything other than a JSON object or NULL is rejected.
func (m *ClickMeta) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("click meta: unsupported type %T", src)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '{' {
		return fmt.Errorf("click meta: expected JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(m)
}

// NullClickMeta scans a nullable JSONB column into a *ClickMeta.
type NullClickMeta struct {
	Meta *ClickMeta
}

// Scan implements sql.Scanner.
func (n *NullClickMeta) Scan(src interface{}) error {
	if src == nil {
		n.Meta = nil
		return nil
	}
	var m ClickMeta
	if err := m.Scan(src); err != nil {
		return err
	}
	if m == (ClickMeta{}) {
		n.Meta = nil
		return nil
	}
	n.Meta = &m
	return nil
}
