package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// SearchResponse represents the search API response.
type SearchResponse struct {
	Question string    `json:"question"`
	Passages []Passage `json:"passages"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "List the passages retrieved for a question",
		Long:  "Runs retrieval only and prints the matching passages with their similarity scores.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithCmd(cmd)
			return runSearch(cmd.Context(), api, cmd.OutOrStdout(), strings.Join(args, " "), k, outputJSON(cmd))
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of passages to retrieve (server default when 0)")

	return cmd
}

func runSearch(ctx context.Context, api *APIClient, w io.Writer, question string, k int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("question is required")
	}

	resp, err := api.Post(ctx, "/search", AskRequest{Question: question, K: k})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if asJSON {
		return printJSON(w, searchResp)
	}

	if len(searchResp.Passages) == 0 {
		fmt.Fprintln(w, "No passages found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d passages:\n\n", len(searchResp.Passages))
	for i, p := range searchResp.Passages {
		fmt.Fprintf(w, "%d. %s (%.2f)\n", i+1, sourceLabel(p), p.Score)
		fmt.Fprintf(w, "   %s\n", truncate(p.Text, 200))
		if i < len(searchResp.Passages)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func sourceLabel(p Passage) string {
	if p.Source == "" {
		return p.ID
	}
	return fmt.Sprintf("%s #%d", p.Source, p.Index)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
