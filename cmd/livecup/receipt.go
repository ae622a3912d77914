package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/brewbean/livecup/internal/order"
)

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// renderReceipt prints the order card shown next to the cup.
func renderReceipt(w io.Writer, view order.View) {
	extras := "-"
	if len(view.Extras) > 0 {
		extras = strings.Join(view.Extras, ", ")
	}

	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "Cust: %s\n", orDefault(view.CustomerName, "Pending..."))
	fmt.Fprintf(w, "Drink: %s\n", orDefault(view.DrinkType, "..."))
	fmt.Fprintf(w, "Size: %s\n", orDefault(view.RawSize, "..."))
	fmt.Fprintf(w, "Extras: %s\n", extras)
	fmt.Fprintf(w, "Cup: [%s]%s%s\n", view.SizeClass.Letter(), flag(view.HasWhippedTopping, " +whip"), flag(view.HasMilkAdded, " +milk"))
	fmt.Fprintln(w, "      STATUS: PREPARING")
}

func flag(on bool, label string) string {
	if on {
		return label
	}
	return ""
}
