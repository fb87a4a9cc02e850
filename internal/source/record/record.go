// Package record carries one unit of raw input between a source adapter and
// the row decoder of the record type being loaded.
package record

import (
	"fmt"
	"strconv"

	"stockroom/pkg/platform/sentinel"
)

// Fields is one unit of input addressed by column (or hash field) name.
type Fields map[string]string

// FromColumns pairs a header with one row of values. Values beyond the header
// are dropped; columns without a value are absent.
func FromColumns(header, values []string) Fields {
	f := make(Fields, len(header))
	for i, column := range header {
		if i < len(values) {
			f[column] = values[i]
		}
	}
	return f
}

// Get returns the value of column and whether it was present.
func (f Fields) Get(column string) (string, bool) {
	v, ok := f[column]
	return v, ok
}

// Require returns the value of column, failing when it is absent.
func (f Fields) Require(column string) (string, error) {
	v, ok := f[column]
	if !ok {
		return "", fmt.Errorf("missing column %q", column)
	}
	return v, nil
}

// OptionalUint parses column as an unsigned integer. Absent or empty values
// yield nil.
func (f Fields) OptionalUint(column string) (*uint64, error) {
	v, ok := f[column]
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", column, err)
	}
	return &n, nil
}

// OptionalString returns column, or nil when it is absent or empty.
func (f Fields) OptionalString(column string) *string {
	v, ok := f[column]
	if !ok || v == "" {
		return nil
	}
	return &v
}

// Malformed marks err as a unit that could not be decoded. where names the
// origin and position, e.g. "stock.csv line 3".
func Malformed(where string, err error) error {
	return fmt.Errorf("%s: %w: %w", where, sentinel.ErrMalformed, err)
}

// Interrupted marks err as a read failure that ended a sequence early.
func Interrupted(where string, err error) error {
	return fmt.Errorf("%s: %w: %w", where, sentinel.ErrUnavailable, err)
}

// Validator is implemented by row shapes that reject some decoded values.
type Validator interface {
	Validate() error
}

// Validate runs row's Validate method when it has one.
func Validate(row any) error {
	if v, ok := row.(Validator); ok {
		return v.Validate()
	}
	return nil
}
