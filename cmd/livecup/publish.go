package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brewbean/livecup/internal/barista"
	"github.com/brewbean/livecup/internal/ledger"
	"github.com/brewbean/livecup/internal/rtc"
)

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one barista order update to a room",
		Long: `Publish the given order fields as an order_update message.

Fields that are not given are sent as null, so every viewer replaces its
order with exactly what was published. With --save a complete order is also
recorded in the ledger.`,
		RunE: runPublish,
	}
	cmd.Flags().String("hub", "", "Hub websocket URL (default from LIVECUP_HUB_URL)")
	cmd.Flags().String("room", "", "Room to publish into")
	cmd.Flags().String("identity", "barista", "Participant identity")
	cmd.Flags().String("topic", "", "Data topic to publish on")
	cmd.Flags().String("db", "", "Ledger database path")
	cmd.Flags().String("drink", "", "Drink type")
	cmd.Flags().String("size", "", "Size (small, medium, large, tall, grande, venti)")
	cmd.Flags().String("milk", "", "Milk type, or none")
	cmd.Flags().StringSlice("extra", nil, "Extra (repeatable)")
	cmd.Flags().String("name", "", "Customer name")
	cmd.Flags().Bool("save", false, "Record the order in the ledger when complete")
	return cmd
}

func stateFromFlags(cmd *cobra.Command) *barista.OrderState {
	state := barista.NewOrderState()
	drink, _ := cmd.Flags().GetString("drink")
	size, _ := cmd.Flags().GetString("size")
	milk, _ := cmd.Flags().GetString("milk")
	extras, _ := cmd.Flags().GetStringSlice("extra")
	name, _ := cmd.Flags().GetString("name")

	state.SetDrinkType(drink)
	state.SetSize(size)
	state.SetMilk(milk)
	state.SetExtras(extras)
	state.SetName(name)
	return state
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("identity") && cfg.Identity == "" {
		cfg.Identity, _ = cmd.Flags().GetString("identity")
	}
	out := newOutputFormatter(cmd)
	state := stateFromFlags(cmd)

	save, _ := cmd.Flags().GetBool("save")
	if save && !state.Complete() {
		return fmt.Errorf("%w: missing %s", ledger.ErrIncompleteOrder, strings.Join(state.Missing(), ", "))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	client, err := rtc.Dial(ctx, rtc.ClientOptions{
		URL:      cfg.HubURL,
		Room:     cfg.Room,
		Identity: cfg.Identity,
	})
	if err != nil {
		return err
	}

	var opts []barista.PublisherOption
	if cfg.DataTopic != "" {
		opts = append(opts, barista.WithPublishTopic(cfg.DataTopic))
	}
	pubErr := barista.NewPublisher(client.Room(), opts...).PublishOrder(ctx, state)
	closeErr := client.Close()
	if err := errors.Join(pubErr, closeErr); err != nil {
		return err
	}

	result := map[string]any{
		"room":    cfg.Room,
		"missing": state.Missing(),
	}
	if save {
		l, err := ledger.Open(ledger.Options{Path: cfg.LedgerDB})
		if err != nil {
			return err
		}
		defer l.Close()

		saved, err := l.Save(ctx, state.Order())
		if err != nil {
			return err
		}
		state.Reset()
		result["saved"] = saved
	}

	if out.jsonMode {
		return out.Print(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published order update to room %s\n", cfg.Room)
	if missing := state.Missing(); !save && len(missing) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Still missing: %s\n", strings.Join(missing, ", "))
	}
	if saved, ok := result["saved"].(ledger.Order); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved order %s: %s %s with %s for %s\n", saved.ID, saved.Size, saved.DrinkType, saved.Milk, saved.Name)
	}
	return nil
}
