package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brewbean/livecup/internal/ledger"
)

func newOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders [id]",
		Short: "List saved orders, or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOrders,
	}
	cmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().Int("limit", 20, "Maximum orders to list (0 for all)")
	cmd.Flags().String("db", "", "Ledger database path")
	return cmd
}

func runOrders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
		format = "json"
	}
	limit, _ := cmd.Flags().GetInt("limit")

	l, err := ledger.Open(ledger.Options{Path: cfg.LedgerDB})
	if err != nil {
		return err
	}
	defer l.Close()

	var orders []ledger.Order
	if len(args) == 1 {
		o, err := l.Get(cmd.Context(), args[0])
		if ledger.IsNotFound(err) {
			return fmt.Errorf("%w; run 'livecup orders' to list saved orders", err)
		}
		if err != nil {
			return err
		}
		orders = []ledger.Order{o}
	} else {
		orders, err = l.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
	}
	return writeOrders(cmd.OutOrStdout(), format, orders)
}

func writeOrders(w io.Writer, format string, orders []ledger.Order) error {
	if orders == nil {
		orders = []ledger.Order{}
	}
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(orders, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(orders); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "table", "":
		if len(orders) == 0 {
			_, err := fmt.Fprintln(w, "No orders saved.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDRINK\tSIZE\tMILK\tEXTRAS\tSAVED")
		for _, o := range orders {
			extras := "-"
			if len(o.Extras) > 0 {
				extras = strings.Join(o.Extras, ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(o.ID), o.Name, o.DrinkType, o.Size, o.Milk, extras, o.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
