package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Mistakes maps a letter position to the wrong characters typed there
type Mistakes map[string][]string

// Value implements driver.Valuer
func (m Mistakes) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *Mistakes) Scan(src interface{}) error {
	*m = Mistakes{}
	return scanJSON(src, m)
}

// Clone returns a deep copy
func (m Mistakes) Clone() Mistakes {
	out := make(Mistakes, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// IntList is a JSON encoded list of ints stored in a single column
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IntList) Scan(src interface{}) error {
	*l = IntList{}
	return scanJSON(src, l)
}

// StringList is a JSON encoded list of strings stored in a single column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	*l = StringList{}
	return scanJSON(src, l)
}

func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// Millis converts t to unix milliseconds
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts unix milliseconds to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
