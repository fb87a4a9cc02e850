package repository

import (
	"testing"

	"pgregory.net/rapid"
)

func stockGen() *rapid.Generator[stock] {
	return rapid.Custom(func(t *rapid.T) stock {
		return stock{
			SKU:  rapid.SampledFrom([]string{"a", "b", "c", "d", "e"}).Draw(t, "sku"),
			Name: rapid.StringMatching(`[A-Za-z]{0,8}`).Draw(t, "name"),
			Qty:  rapid.IntRange(0, 1000).Draw(t, "qty"),
			Note: rapid.StringMatching(`[a-z]{0,3}`).Draw(t, "note"),
		}
	})
}

func TestAddProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := rapid.SliceOf(stockGen()).Draw(t, "records")

		repo := New[string, stock]()
		distinct := map[string]bool{}
		wantQty := map[string]int{}
		wantNote := map[string]string{}
		for _, r := range records {
			repo.Add(r)
			distinct[r.SKU] = true
			wantQty[r.SKU] += r.Qty
			wantNote[r.SKU] = r.Note + wantNote[r.SKU]
		}

		if repo.Len() != len(distinct) {
			t.Fatalf("expected %d identities, got %d", len(distinct), repo.Len())
		}

		seen := map[string]bool{}
		for got := range repo.Items() {
			if seen[got.SKU] {
				t.Fatalf("identity %q stored twice", got.SKU)
			}
			seen[got.SKU] = true
			if got.Qty != wantQty[got.SKU] {
				t.Fatalf("qty for %q: expected %d, got %d", got.SKU, wantQty[got.SKU], got.Qty)
			}
			if got.Note != wantNote[got.SKU] {
				t.Fatalf("note for %q: expected %q, got %q", got.SKU, wantNote[got.SKU], got.Note)
			}
		}
	})
}

func TestItemsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		repo := New[string, stock]()
		for _, r := range rapid.SliceOf(stockGen()).Draw(t, "records") {
			repo.Add(r)
		}

		first := map[string]stock{}
		for got := range repo.Items() {
			first[got.SKU] = got
		}
		count := 0
		for got := range repo.Items() {
			count++
			if first[got.SKU] != got {
				t.Fatalf("record %q differs between iterations", got.SKU)
			}
		}
		if count != len(first) {
			t.Fatalf("expected %d records on second pass, got %d", len(first), count)
		}
	})
}
