package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(Options{Path: filepath.Join(t.TempDir(), "nested", "ledger.db")})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func completeOrder() Order {
	return Order{
		DrinkType: "latte",
		Size:      "large",
		Milk:      "oat milk",
		Extras:    []string{"whipped cream", "caramel"},
		Name:      "Sam",
	}
}

func TestSaveAndGet(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	saved, err := l.Save(ctx, completeOrder())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned: %+v", saved)
	}

	got, err := l.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.CreatedAt, saved.CreatedAt)
	}
	got.CreatedAt = saved.CreatedAt
	if !reflect.DeepEqual(got, saved) {
		t.Fatalf("round trip mismatch\n got %+v\nwant %+v", got, saved)
	}
}

func TestSaveRejectsIncompleteOrder(t *testing.T) {
	l := openTestLedger(t)

	incomplete := completeOrder()
	incomplete.Milk = ""
	incomplete.Name = "  "

	_, err := l.Save(context.Background(), incomplete)
	if !errors.Is(err, ErrIncompleteOrder) {
		t.Fatalf("expected ErrIncompleteOrder, got %v", err)
	}
	if want := "ledger: order is incomplete: missing milk type, name"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}

	orders, err := l.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("incomplete order was stored: %+v", orders)
	}
}

func TestSaveWithoutExtras(t *testing.T) {
	l := openTestLedger(t)

	o := completeOrder()
	o.Extras = nil
	saved, err := l.Save(context.Background(), o)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := l.Get(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Extras == nil || len(got.Extras) != 0 {
		t.Fatalf("expected empty extras, got %#v", got.Extras)
	}
}

func TestGetMissing(t *testing.T) {
	l := openTestLedger(t)

	_, err := l.Get(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"Ana", "Ben", "Cy"} {
		o := completeOrder()
		o.Name = name
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := l.Save(ctx, o); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	all, err := l.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, o := range all {
		names = append(names, o.Name)
	}
	if want := []string{"Cy", "Ben", "Ana"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	limited, err := l.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].Name != "Cy" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}

func TestMissingOrder(t *testing.T) {
	if got := (Order{}).Missing(); !reflect.DeepEqual(got, []string{"drink type", "size", "milk type", "name"}) {
		t.Fatalf("unexpected missing list %v", got)
	}
	if got := completeOrder().Missing(); got != nil {
		t.Fatalf("expected nothing missing, got %v", got)
	}
}
