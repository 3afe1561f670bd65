package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL  string
	timeout  time.Duration
	callerID string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fincasa-cli",
		Short: "Fincasa CLI tool",
		Long:  `A command line interface for interacting with the Fincasa ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Fincasa API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&callerID, "caller", "", "Caller identity sent as X-Caller-ID")

	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(entriesCmd())
	rootCmd.AddCommand(healthCmd())

	return rootCmd
}

func summaryCmd() *cobra.Command {
	var from, to, category, kind, status string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income/expense/balance over a due-date period",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, code, err := apiGet("/api/v1/reports/summary" + summaryQuery(from, to, category, kind, status))
			if err != nil {
				return err
			}
			if code != http.StatusOK {
				return fmt.Errorf("summary failed (status %d): %s", code, string(body))
			}

			var result map[string]any
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printJSON(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Optional category filter")
	cmd.Flags().StringVar(&kind, "kind", "", "Optional kind filter (income|expense)")
	cmd.Flags().StringVar(&status, "status", "", "Optional status filter (pending|paid|canceled)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Entry listings",
	}

	var from, to string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries due inside a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("from", from)
			q.Set("to", to)
			return listEntries("/api/v1/entries?" + q.Encode())
		},
	}
	listCmd.Flags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&to, "to", "", "Period end (YYYY-MM-DD)")
	_ = listCmd.MarkFlagRequired("from")
	_ = listCmd.MarkFlagRequired("to")

	overdueCmd := &cobra.Command{
		Use:   "overdue",
		Short: "List pending entries past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEntries("/api/v1/entries/overdue")
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(overdueCmd)

	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, code, err := apiGet("/ready")
			if err != nil {
				return err
			}
			if code != http.StatusOK {
				return fmt.Errorf("service not ready (status %d): %s", code, string(body))
			}

			var result map[string]any
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printJSON(result)
			return nil
		},
	}
}

func summaryQuery(from, to, category, kind, status string) string {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	if category != "" {
		q.Set("category_id", category)
	}
	if kind != "" {
		q.Set("kind", kind)
	}
	if status != "" {
		q.Set("status", status)
	}
	return "?" + q.Encode()
}

type entryRow struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
	Overdue     bool   `json:"overdue"`
}

func listEntries(path string) error {
	body, code, err := apiGet(path)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("listing failed (status %d): %s", code, string(body))
	}

	var result struct {
		Entries []entryRow `json:"entries"`
		Total   int64      `json:"total"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	printEntries(result.Entries, result.Total)
	return nil
}

func printEntries(entries []entryRow, total int64) {
	fmt.Printf("%-28s %-24s %12s %-12s %-8s\n", "ID", "DESCRIPTION", "AMOUNT", "DUE", "STATUS")
	for _, e := range entries {
		status := e.Status
		if e.Overdue {
			status = "overdue"
		}
		fmt.Printf("%-28s %-24s %12s %-12s %-8s\n",
			e.ID, truncate(e.Description, 24), e.Amount, e.DueDate, status)
	}
	fmt.Printf("total: %d\n", total)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func printJSON(v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	fmt.Print(buf.String())
}

func apiGet(path string) ([]byte, int, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if callerID != "" {
		req.Header.Set("X-Caller-ID", callerID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}
