package view

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/inventory/models"
	"stockroom/pkg/platform/sentinel"
)

func ptr[T any](v T) *T { return &v }

type fakeInventory struct {
	items    []models.Item
	searches []string
}

func (f *fakeInventory) List() []models.Item { return f.items }

func (f *fakeInventory) Search(term string) []models.Item {
	f.searches = append(f.searches, term)
	var out []models.Item
	for _, item := range f.items {
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(term)) {
			out = append(out, item)
		}
	}
	return out
}

func (f *fakeInventory) Get(id string) (models.Item, error) {
	for _, item := range f.items {
		if item.ProductID == id {
			return item, nil
		}
	}
	return models.Item{}, fmt.Errorf("item %q: %w", id, sentinel.ErrNotFound)
}

func stock() []models.Item {
	return []models.Item{
		{ProductID: "B2", Name: "Gadget"},
		{ProductID: "A1", Name: "Widget", Quantity: ptr[uint64](8), Note: ptr("barfoo")},
	}
}

// rows returns the whitespace separated fields of every non-empty line.
func rows(s string) [][]string {
	var out [][]string
	for _, line := range strings.Split(s, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}

func TestRender(t *testing.T) {
	items := stock()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Inventory", items))

	assert.Equal(t, [][]string{
		{"Inventory", "(2)"},
		{"ID", "Name", "Quantity", "Note"},
		{"A1", "Widget", "8", "barfoo"},
		{"B2", "Gadget"},
	}, rows(buf.String()))
	assert.Equal(t, "B2", items[0].ProductID, "input order is untouched")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "", nil))
	assert.Equal(t, [][]string{{"ID", "Name", "Quantity", "Note"}}, rows(buf.String()))
}

func TestBrowse(t *testing.T) {
	inv := &fakeInventory{items: stock()}
	in := strings.NewReader("/WIDG\nB2\nZ9\n\nq\nA1\n")
	var out bytes.Buffer

	require.NoError(t, Browse(context.Background(), in, &out, inv))

	got := out.String()
	assert.Equal(t, []string{"WIDG"}, inv.searches)
	assert.Contains(t, got, `Matching "WIDG" (1)`)
	assert.Contains(t, got, `no item "Z9"`)
	assert.Equal(t, 2, strings.Count(got, "Inventory (2)"))
}

func TestBrowseEndsWithInput(t *testing.T) {
	inv := &fakeInventory{items: stock()}
	var out bytes.Buffer
	require.NoError(t, Browse(context.Background(), strings.NewReader("A1"), &out, inv))
	assert.Contains(t, out.String(), "barfoo")
}

func TestBrowseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Browse(ctx, strings.NewReader("A1\n"), &bytes.Buffer{}, &fakeInventory{})
	assert.ErrorIs(t, err, context.Canceled)
}
