package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/clienttx/internal/adapter/http/dto"
	"github.com/iho/clienttx/internal/adapter/repository/memory"
	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/infrastructure/idgen"
	"github.com/iho/clienttx/internal/usecase"
)

type cli struct {
	baseURL string
	timeout time.Duration
	out     io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	rootCmd := &cobra.Command{
		Use:           "clienttx-cli",
		Short:         "Client transaction ledger CLI",
		Long:          `A command line interface for submitting posting instructions and querying client transactions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&c.baseURL, "url", "http://localhost:8080", "Base URL of the client transaction API")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")

	var (
		file           string
		idempotencyKey string
	)
	submitCmd := &cobra.Command{
		Use:   "submit <client-transaction-id> <account-id>",
		Short: "Submit a posting instruction batch read from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return c.do(cmd.Context(), http.MethodPost, c.ctPath(args[0], args[1], "/instructions"), body, idempotencyKey)
		},
	}
	submitCmd.Flags().StringVarP(&file, "file", "f", "-", "Instruction JSON file")
	submitCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header value")

	var at string
	balancesCmd := &cobra.Command{
		Use:   "balances <client-transaction-id> <account-id>",
		Short: "Show client transaction balances, optionally as of --at",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodGet, withAt(c.ctPath(args[0], args[1], "/balances"), at), nil, "")
		},
	}
	balancesCmd.Flags().StringVar(&at, "at", "", "RFC3339 point in time")

	effectsCmd := &cobra.Command{
		Use:   "effects <client-transaction-id> <account-id>",
		Short: "Show authorised, settled and unsettled amounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodGet, withAt(c.ctPath(args[0], args[1], "/effects"), at), nil, "")
		},
	}
	effectsCmd.Flags().StringVar(&at, "at", "", "RFC3339 point in time")

	latestCmd := &cobra.Command{
		Use:   "latest <client-transaction-id> <account-id>",
		Short: "Show the latest client transaction update",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodGet, c.ctPath(args[0], args[1], "/latest"), nil, "")
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <client-transaction-id> <account-id>",
		Short: "Show a client transaction and its history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.Context(), http.MethodGet, c.ctPath(args[0], args[1], "/"), nil, "")
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list <account-id>",
		Short: "List client transactions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/accounts/%s/client-transactions?limit=%d&offset=%d", url.PathEscape(args[0]), limit, offset)
			return c.do(cmd.Context(), http.MethodGet, path, nil, "")
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	replayCmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a sequence of instructions locally and print the resulting balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return replay(cmd.Context(), c.out, data)
		},
	}

	rootCmd.AddCommand(submitCmd, balancesCmd, effectsCmd, latestCmd, getCmd, listCmd, replayCmd)
	return rootCmd
}

func (c *cli) ctPath(ctid, accountID, suffix string) string {
	return fmt.Sprintf("/api/v1/client-transactions/%s/accounts/%s%s", url.PathEscape(ctid), url.PathEscape(accountID), suffix)
}

func withAt(path, at string) string {
	if at == "" {
		return path
	}
	return path + "?at=" + url.QueryEscape(at)
}

// do sends a request to the API and prints the JSON response.
func (c *cli) do(ctx context.Context, method, path string, body []byte, idempotencyKey string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		_, err = c.out.Write(respBody)
		return err
	}
	pretty.WriteByte('\n')
	_, err = c.out.Write(pretty.Bytes())
	return err
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

// replayStep is one instruction of a replay file.
type replayStep struct {
	ClientTransactionID string `json:"client_transaction_id"`
	AccountID           string `json:"account_id"`
	dto.SubmitInstructionRequest
}

// replay submits steps against an in-memory ledger, printing each outcome
// and then the final balances of every client transaction touched.
func replay(ctx context.Context, out io.Writer, data []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var steps []replayStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("failed to parse replay file: %w", err)
	}

	uc := usecase.NewClientTransactionUseCase(
		memory.NewClientTransactionRepository(),
		nil,
		idgen.NewULIDGenerator(),
		zerolog.Nop(),
		nil,
	)

	var touched []domain.ClientTransactionKey
	seen := make(map[domain.ClientTransactionKey]bool)

	for i, step := range steps {
		if err := dto.Validate(&step.SubmitInstructionRequest); err != nil {
			fmt.Fprintf(out, "%d\t%s/%s\tinvalid: %v\n", i+1, step.ClientTransactionID, step.AccountID, err)
			continue
		}
		input, err := step.ToUseCaseInput(step.ClientTransactionID, step.AccountID)
		if err != nil {
			fmt.Fprintf(out, "%d\t%s/%s\tinvalid: %v\n", i+1, step.ClientTransactionID, step.AccountID, err)
			continue
		}

		result, err := uc.Submit(ctx, input)
		if err != nil {
			var subErr *domain.SubmissionError
			if errors.As(err, &subErr) {
				fmt.Fprintf(out, "%d\t%s/%s\t%s\trejected: %s\n", i+1, input.ClientTransactionID, input.AccountID, input.InstructionType, domain.RejectionReason(err))
				continue
			}
			return err
		}

		fmt.Fprintf(out, "%d\t%s/%s\t%s\taccepted seq=%d\n", i+1, input.ClientTransactionID, input.AccountID, input.InstructionType, result.Sequence)
		if !seen[result.Key] {
			seen[result.Key] = true
			touched = append(touched, result.Key)
		}
	}

	summary := make([]*dto.BalancesResponse, 0, len(touched))
	for _, key := range touched {
		balances, err := uc.GetBalances(ctx, key, nil)
		if err != nil {
			return err
		}
		summary = append(summary, &dto.BalancesResponse{
			ClientTransactionID: key.ClientTransactionID,
			AccountID:           key.AccountID,
			Balances:            dto.BalancesFromDomain(balances),
		})
	}

	return printJSON(out, summary)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
