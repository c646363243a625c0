package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newTranscriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Query ingested transcripts on the parley server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all transcripts (metadata only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/transcripts", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <session-id>",
		Short: "Fetch one transcript by session id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/transcripts", url.Values{"id": {args[0]}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Fetch the most recently ingested transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/transcripts", url.Values{"latest": {"true"}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unprocessed",
		Short: "List transcripts not yet marked processed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/transcripts", url.Values{"unprocessed": {"true"}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mark-processed <session-id>",
		Short: "Mark a transcript processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodPost, "/api/transcripts", url.Values{"markProcessed": {args[0]}})
		},
	})

	return cmd
}

func apiCall(method, path string, params url.Values) error {
	target := cfg.ServerURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	os.Stdout.Write(body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
