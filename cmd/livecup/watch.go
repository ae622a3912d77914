package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brewbean/livecup/internal/eventbus"
	"github.com/brewbean/livecup/internal/observability"
	"github.com/brewbean/livecup/internal/order"
	"github.com/brewbean/livecup/internal/projector"
	"github.com/brewbean/livecup/internal/rtc"
	"github.com/brewbean/livecup/internal/version"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a room and print the live order as it changes",
		RunE:  runWatch,
	}
	cmd.Flags().String("hub", "", "Hub websocket URL (default from LIVECUP_HUB_URL)")
	cmd.Flags().String("room", "", "Room to join")
	cmd.Flags().String("identity", "", "Participant identity (generated when empty)")
	cmd.Flags().String("topic", "", "Only process packets sent on this data topic")
	cmd.Flags().String("metrics-addr", "", "Serve viewer metrics on this address")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, "watch", cmd.ErrOrStderr()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed to initialise logging: %v\n", err)
	}
	out := newOutputFormatter(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	warnOnHubMismatch(ctx, cfg.HubURL)

	metrics := observability.NewMetrics()
	counter := observability.NewEventCounter()
	bus := eventbus.New(eventbus.WithObserver(metrics), eventbus.WithObserver(counter))
	defer bus.Shutdown()
	defer func() {
		for _, line := range counter.Summary() {
			log.Printf("[watch] events %s", line)
		}
	}()
	metrics.WatchBus("viewer", bus)
	if addr := metricsAddr(cmd, cfg.MetricsEnabled); addr != "" {
		go serveMetrics(addr, metrics.Handler())
	}

	client, err := rtc.Dial(ctx, rtc.ClientOptions{
		URL:      cfg.HubURL,
		Room:     cfg.Room,
		Identity: cfg.Identity,
		RoomOpts: []rtc.RoomOption{rtc.WithBusOptions(eventbus.WithObserver(metrics), eventbus.WithObserver(counter))},
	})
	if err != nil {
		return err
	}
	defer client.Close()

	store := projector.NewStore(bus)
	updates := store.Updates(eventbus.WithSubscriptionName("watch"))
	defer updates.Close()

	proj := projector.New(store,
		projector.WithRecorder(metrics),
		projector.WithTopicFilter(cfg.DataTopic),
	)
	defer proj.Close()
	proj.Bind(client.Room())

	if err := printView(cmd, out, store.View()); err != nil {
		return err
	}

	printErr := make(chan error, 1)
	printed := eventbus.Consume(ctx, updates, func(env eventbus.TypedEnvelope[order.View]) {
		if err := printView(cmd, out, env.Payload); err != nil {
			select {
			case printErr <- err:
			default:
			}
		}
	})
	// Stop printing before the deferred Close publishes the empty view.
	defer func() {
		updates.Close()
		<-printed
	}()

	select {
	case <-ctx.Done():
	case <-printed:
	case err := <-printErr:
		return err
	case <-client.Done():
		// The room is gone; stop listening but keep the last order on screen.
		proj.Bind(nil)
		log.Printf("[watch] hub connection closed")
	}
	return nil
}

func printView(cmd *cobra.Command, out *OutputFormatter, view order.View) error {
	if out.jsonMode {
		return out.Stream(view)
	}
	renderReceipt(cmd.OutOrStdout(), view)
	return nil
}

// metricsAddr returns the --metrics-addr value. An explicit flag wins over
// LIVECUP_METRICS=false, which only suppresses metrics nobody asked for.
func metricsAddr(cmd *cobra.Command, enabled bool) string {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr != "" && !enabled {
		log.Printf("[watch] serving metrics on %s although LIVECUP_METRICS is false; --metrics-addr was given", addr)
	}
	return addr
}

// healthURL maps a hub websocket endpoint to its /healthz URL.
func healthURL(hubURL string) (string, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/healthz"
	u.RawQuery = ""
	return u.String(), nil
}

func warnOnHubMismatch(ctx context.Context, hubURL string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	health, err := fetchHubHealth(ctx, hubURL)
	if err != nil {
		return
	}
	if w := version.CheckHubMismatch(health.Version); w != "" {
		log.Print(w)
	}
}

func serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	log.Printf("[watch] metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[watch] metrics server: %v", err)
	}
}
