package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type Document struct {
	ID           string  `json:"id"`
	SourceKey    string  `json:"source_key"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Retries      int     `json:"retries"`
	Error        string  `json:"error,omitempty"`
	PassageCount int     `json:"passage_count"`
	CreatedAt    string  `json:"created_at"`
	IndexedAt    *string `json:"indexed_at,omitempty"`
}

type DocumentList struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// DocumentsCmd creates the documents command.
func DocumentsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List indexed party programs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithCmd(cmd)
			return runDocuments(cmd.Context(), api, cmd.OutOrStdout(), limit, cursor, outputJSON(cmd))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocuments(ctx context.Context, api *APIClient, w io.Writer, limit int, cursor string, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	if asJSON {
		return printJSON(w, list)
	}

	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No documents indexed yet. Run 'votewise sync' or 'votewised index'.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tPASSAGES\tINDEXED")
	for _, d := range list.Items {
		indexed := "-"
		if d.IndexedAt != nil {
			indexed = *d.IndexedAt
		}
		status := d.Status
		if d.Error != "" {
			status += " (" + truncate(d.Error, 40) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.SourceKey, status, d.PassageCount, indexed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if list.HasMore {
		fmt.Fprintf(w, "\nMore documents available: --cursor %s\n", list.Cursor)
	}
	return nil
}
