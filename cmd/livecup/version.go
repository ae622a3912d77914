package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/brewbean/livecup/internal/server"
	"github.com/brewbean/livecup/internal/version"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show client and hub versions",
		RunE:  runVersion,
	}
	cmd.Flags().String("hub", "", "Hub websocket URL (default from LIVECUP_HUB_URL)")
	return cmd
}

func fetchHubHealth(ctx context.Context, hubURL string) (server.HealthResponse, error) {
	endpoint, err := healthURL(hubURL)
	if err != nil {
		return server.HealthResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return server.HealthResponse{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return server.HealthResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return server.HealthResponse{}, fmt.Errorf("hub health: %s", resp.Status)
	}

	var health server.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return server.HealthResponse{}, fmt.Errorf("hub health: %w", err)
	}
	return health, nil
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	health, hubErr := fetchHubHealth(ctx, cfg.HubURL)

	if out.jsonMode {
		data := map[string]any{"client": version.String()}
		if hubErr == nil {
			data["hub"] = health.Version
			if w := version.CheckHubMismatch(health.Version); w != "" {
				data["mismatch"] = true
				data["warning"] = w
			}
		} else {
			data["hub"] = nil
			data["hub_error"] = hubErr.Error()
		}
		return out.Print(data)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Client: %s\n", version.FormatVersion(version.String()))
	if hubErr != nil {
		fmt.Fprintf(w, "Hub: unavailable (%v)\n", hubErr)
		return nil
	}
	fmt.Fprintf(w, "Hub: %s\n", version.FormatVersion(health.Version))
	if warning := version.CheckHubMismatch(health.Version); warning != "" {
		fmt.Fprintln(w, warning)
	}
	return nil
}
