package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/brewbean/livecup/internal/order"
)

func TestRenderReceiptPending(t *testing.T) {
	var buf bytes.Buffer
	renderReceipt(&buf, order.Snapshot{}.View())

	for _, want := range []string{
		"Cust: Pending...",
		"Drink: ...",
		"Size: ...",
		"Extras: -",
		"Cup: [M]\n",
		"STATUS: PREPARING",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("receipt missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRenderReceiptFullOrder(t *testing.T) {
	snap := order.Snapshot{
		CustomerName: "Sam",
		DrinkType:    "latte",
		RawSize:      "Venti",
		Milk:         "oat",
		Extras:       []string{"whipped cream", "caramel"},
	}

	var buf bytes.Buffer
	renderReceipt(&buf, snap.View())

	for _, want := range []string{
		"Cust: Sam",
		"Drink: latte",
		"Size: Venti",
		"Extras: whipped cream, caramel",
		"Cup: [L] +whip +milk",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("receipt missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRenderReceiptNoMilk(t *testing.T) {
	var buf bytes.Buffer
	renderReceipt(&buf, order.Snapshot{RawSize: "tall", Milk: "None"}.View())
	if !strings.Contains(buf.String(), "Cup: [S]\n") {
		t.Fatalf("unexpected cup line:\n%s", buf.String())
	}
}
