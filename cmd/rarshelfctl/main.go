// Command rarshelfctl is a small operator CLI for a running rarshelfd: it
// can inspect the daemon's readiness, print the resolved configuration
// document, and trigger a manual processing-queue submission outside the
// watcher's own stabilization protocol.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rarshelf/rarshelf/internal/config"
)

var adminAddr string

func main() {
	root := &cobra.Command{
		Use:   "rarshelfctl",
		Short: "Operator CLI for rarshelfd",
	}
	root.PersistentFlags().StringVar(&adminAddr, "admin-addr", "http://127.0.0.1:9090", "rarshelfd admin HTTP surface")

	root.AddCommand(statusCmd(), configCmd(), submitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the daemon's readiness and queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(adminAddr + "/readyz")
			if err != nil {
				return fmt.Errorf("contact %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()

			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			fmt.Printf("http status:     %s\n", resp.Status)
			fmt.Printf("status:          %v\n", body["status"])
			fmt.Printf("queue_depth:     %v\n", body["queue_depth"])
			fmt.Printf("watched_sources: %v\n", body["watched_sources"])
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	var configPath string

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
	show.Flags().StringVar(&configPath, "config", "", "path to the configuration document")

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cfgCmd.AddCommand(show)
	return cfgCmd
}

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <path>",
		Short: "Manually enqueue the archive sets found directly under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{"path": args[0]})
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Post(adminAddr+"/admin/submit", "application/json", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("contact %s: %w", adminAddr, err)
			}
			defer resp.Body.Close()

			var body struct {
				ArchiveSetsEnqueued int    `json:"archive_sets_enqueued"`
				Error               string `json:"error,omitempty"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("submit failed (%s): %s", resp.Status, body.Error)
			}

			fmt.Printf("enqueued %d archive set(s)\n", body.ArchiveSetsEnqueued)
			return nil
		},
	}
}
