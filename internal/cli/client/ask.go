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

// AskRequest is the body of POST /ask and POST /search.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type Passage struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id,omitempty"`
	Source     string  `json:"source,omitempty"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type FailedChunk struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type AnswerResponse struct {
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	Passages     []Passage     `json:"passages"`
	ChunkCount   int           `json:"chunk_count"`
	FailedChunks []FailedChunk `json:"failed_chunks,omitempty"`
	Cached       bool          `json:"cached"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the party programs",
		Long: `Sends the question to the VoteWise API and prints the synthesized answer
followed by the passages it was built from.`,
		Example: `  votewise ask "Quelle est la position du PS sur les pensions ?"
  votewise ask -k 8 "Wat zegt N-VA over klimaat?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithCmd(cmd)
			return runAsk(cmd.Context(), api, cmd.OutOrStdout(), strings.Join(args, " "), k, outputJSON(cmd))
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of passages to retrieve (server default when 0)")

	return cmd
}

func runAsk(ctx context.Context, api *APIClient, w io.Writer, question string, k int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("question is required")
	}

	resp, err := api.Post(ctx, "/ask", AskRequest{Question: question, K: k})
	if err != nil {
		return couldNotAnswer(api, err)
	}

	var answer AnswerResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if asJSON {
		return printJSON(w, answer)
	}

	fmt.Fprintln(w, answer.Answer)
	if len(answer.FailedChunks) > 0 {
		fmt.Fprintf(w, "\n(%d of %d chunks could not be summarized; the answer may be incomplete)\n",
			len(answer.FailedChunks), answer.ChunkCount)
	}
	printContexts(w, answer.Passages)
	return nil
}

func printContexts(w io.Writer, passages []Passage) {
	if len(passages) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRetrieved contexts:")
	for _, p := range passages {
		if p.Source != "" {
			fmt.Fprintf(w, "- [%s] %s\n", p.Source, p.Text)
		} else {
			fmt.Fprintf(w, "- %s\n", p.Text)
		}
	}
}

// couldNotAnswer keeps server-rendered messages and phrases transport
// failures the same way.
func couldNotAnswer(api *APIClient, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return fmt.Errorf("Could not answer: the VoteWise API at %s is unreachable (%v)", api.BaseURL(), err)
}
