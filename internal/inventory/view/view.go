// Package view draws inventory tables on a terminal.
package view

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"stockroom/internal/inventory/models"
	"stockroom/pkg/platform/sentinel"
)

// Inventory is the read side Browse needs.
type Inventory interface {
	List() []models.Item
	Search(term string) []models.Item
	Get(id string) (models.Item, error)
}

const prompt = "> "

// Render writes title, a header and one row per item, sorted by ID. items is
// not modified.
func Render(w io.Writer, title string, items []models.Item) error {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b models.Item) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	if title != "" {
		if _, err := fmt.Fprintf(w, "%s (%d)\n", title, len(sorted)); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(models.Columns(), "\t"))
	for _, item := range sorted {
		fmt.Fprintln(tw, strings.Join(item.Cells(), "\t"))
	}
	return tw.Flush()
}

// Browse runs a line based session over inv until in is exhausted, q is
// entered or ctx is cancelled. An empty line shows everything, /term searches
// by name and any other input looks up a single ID.
func Browse(ctx context.Context, in io.Reader, out io.Writer, inv Inventory) error {
	if err := Render(out, "Inventory", inv.List()); err != nil {
		return err
	}
	fmt.Fprintln(out, "enter an ID, /term to search, empty line for all, q to quit")

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		var err error
		switch {
		case line == "q":
			return nil
		case line == "":
			err = Render(out, "Inventory", inv.List())
		case strings.HasPrefix(line, "/"):
			term := strings.TrimSpace(line[1:])
			err = Render(out, fmt.Sprintf("Matching %q", term), inv.Search(term))
		default:
			err = show(out, inv, line)
		}
		if err != nil {
			return err
		}
	}
}

func show(out io.Writer, inv Inventory, id string) error {
	item, err := inv.Get(id)
	if errors.Is(err, sentinel.ErrNotFound) {
		_, err = fmt.Fprintf(out, "no item %q\n", id)
		return err
	}
	if err != nil {
		return err
	}
	return Render(out, "", []models.Item{item})
}
