package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"stockroom/internal/source/record"
)

// Column names shared by every stock export format.
const (
	ColumnID       = "Product ID"
	ColumnName     = "Product Name"
	ColumnQuantity = "Product Qty"
	ColumnNote     = "Product Note"
)

// Row is the shape of one stock record as it arrives from an export, before
// conversion to an Item. YAML and JSON exports use the column names as keys.
type Row struct {
	ID       string  `json:"Product ID" yaml:"Product ID"`
	Name     string  `json:"Product Name" yaml:"Product Name"`
	Quantity *uint64 `json:"Product Qty,omitempty" yaml:"Product Qty,omitempty"`
	Note     *string `json:"Product Note,omitempty" yaml:"Product Note,omitempty"`
}

// rowDocument is the keyed form of a Row with the required keys tracked, so a
// missing key can be told apart from an empty value.
type rowDocument struct {
	ID       *string `json:"Product ID" yaml:"Product ID"`
	Name     *string `json:"Product Name" yaml:"Product Name"`
	Quantity *uint64 `json:"Product Qty" yaml:"Product Qty"`
	Note     *string `json:"Product Note" yaml:"Product Note"`
}

func (d rowDocument) row() (Row, error) {
	if d.ID == nil {
		return Row{}, fmt.Errorf("missing column %q", ColumnID)
	}
	if d.Name == nil {
		return Row{}, fmt.Errorf("missing column %q", ColumnName)
	}
	return Row{ID: *d.ID, Name: *d.Name, Quantity: d.Quantity, Note: d.Note}, nil
}

// UnmarshalJSON requires the ID and name keys. Their values may be empty.
func (r *Row) UnmarshalJSON(b []byte) error {
	var d rowDocument
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	row, err := d.row()
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// UnmarshalYAML requires the ID and name keys. Their values may be empty.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	var d rowDocument
	if err := node.Decode(&d); err != nil {
		return err
	}
	row, err := d.row()
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// RowFromFields decodes a header-addressed row. The ID and name columns must
// be present but may be empty; quantity and note may be missing or empty.
func RowFromFields(f record.Fields) (Row, error) {
	id, err := f.Require(ColumnID)
	if err != nil {
		return Row{}, err
	}
	name, err := f.Require(ColumnName)
	if err != nil {
		return Row{}, err
	}
	qty, err := f.OptionalUint(ColumnQuantity)
	if err != nil {
		return Row{}, err
	}
	return Row{ID: id, Name: name, Quantity: qty, Note: f.OptionalString(ColumnNote)}, nil
}

// FromRow converts a decoded row into an Item. Empty notes count as absent.
func FromRow(r Row) Item {
	item := Item{ProductID: r.ID, Name: r.Name, Quantity: r.Quantity}
	if r.Note != nil && *r.Note != "" {
		item.Note = r.Note
	}
	return item
}
