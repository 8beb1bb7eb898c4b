package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/clienttx/internal/adapter/http/dto"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1}))

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}
}

func TestSubmitCommandPostsInstruction(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sequence":1}`))
	}))
	defer srv.Close()

	body := `{"instruction_type":"Transfer"}`
	out, err := execute(t, body, "--url", srv.URL, "submit", "ct-1", "acc-1", "--idempotency-key", "k1")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/client-transactions/ct-1/accounts/acc-1/instructions", gotPath)
	assert.Equal(t, "k1", gotKey)
	assert.JSONEq(t, body, string(gotBody))
	assert.Equal(t, "{\n  \"sequence\": 1\n}\n", out)
}

func TestBalancesCommandPassesAt(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("at")
		w.Write([]byte(`{"balances":[]}`))
	}))
	defer srv.Close()

	_, err := execute(t, "", "--url", srv.URL, "balances", "ct-1", "acc-1", "--at", "2026-01-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T10:00:00Z", gotQuery)
}

func TestCommandReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"client transaction not found"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "", "--url", srv.URL, "latest", "ct-1", "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestReplayCommand(t *testing.T) {
	steps := `[
	  {"client_transaction_id":"ct-1","account_id":"acc-1","instruction_type":"InboundAuthorisation","at_datetime":"2026-01-01T10:00:00Z",
	   "postings":[{"account_id":"acc-1","amount":"100","denomination":"GBP","credit":true,"phase":"pending_in"}]},
	  {"client_transaction_id":"ct-1","account_id":"acc-1","instruction_type":"Settlement","at_datetime":"2026-01-01T09:00:00Z",
	   "postings":[{"account_id":"acc-1","amount":"100","denomination":"GBP","credit":false,"phase":"pending_in"}]},
	  {"client_transaction_id":"ct-1","account_id":"acc-1","instruction_type":"Settlement","at_datetime":"2026-01-01T12:00:00Z","final":true,
	   "postings":[
	     {"account_id":"acc-1","amount":"100","denomination":"GBP","credit":false,"phase":"pending_in"},
	     {"account_id":"acc-1","amount":"100","denomination":"GBP","credit":true,"phase":"committed"}
	   ]}
	]`
	file := filepath.Join(t.TempDir(), "steps.json")
	require.NoError(t, os.WriteFile(file, []byte(steps), 0o600))

	out, err := execute(t, "", "replay", file)
	require.NoError(t, err)

	lines := strings.SplitN(out, "\n", 4)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "accepted seq=1")
	assert.Contains(t, lines[1], "rejected: BACKDATING")
	assert.Contains(t, lines[2], "accepted seq=2")

	var summary []dto.BalancesResponse
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, "ct-1", summary[0].ClientTransactionID)
}

func TestReplayReportsBatchRejections(t *testing.T) {
	steps := `[
	  {"client_transaction_id":"ct-1","account_id":"acc-1","instruction_type":"InboundAuthorisation","at_datetime":"2026-01-01T10:00:00Z","postings":[]},
	  {"client_transaction_id":"ct-1","account_id":"acc-1","instruction_type":"InboundAuthorisation",
	   "postings":[{"account_id":"acc-1","amount":"1","denomination":"GBP","credit":true,"phase":"pending_in"}]}
	]`

	out, err := execute(t, steps, "replay", "-")
	require.NoError(t, err)

	lines := strings.SplitN(out, "\n", 3)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "rejected: EMPTY_BATCH")
	assert.Contains(t, lines[1], "rejected: MISSING_TIMESTAMP")
}

func TestReplayRejectsMalformedFile(t *testing.T) {
	_, err := execute(t, "not json", "replay", "-")
	assert.Error(t, err)
}
