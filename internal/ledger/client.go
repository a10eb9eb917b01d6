package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// Program function names used by the oracle.
const (
	FuncCreatePool  = "create_pool"
	FuncLockPool    = "lock_pool"
	FuncResolvePool = "resolve_pool"
)

// PoolsMapping is the program mapping holding on-chain pool state by key.
const PoolsMapping = "pools"

// ClientConfig holds the endpoints and credentials for the ledger client.
type ClientConfig struct {
	// NodeURL is the node REST API root used for mapping queries,
	// e.g. "https://api.explorer.provable.com/v1/testnet".
	NodeURL string

	// ExecutorURL is the execution endpoint that proves and broadcasts
	// program executions. Defaults to NodeURL when empty.
	ExecutorURL string

	// ProgramID is the deployed pool program, e.g. "maniifold_pools.aleo".
	ProgramID string

	// PrivateKey is the oracle account key authorizing executions.
	PrivateKey string

	// Timeout bounds each ledger call so a stalled node cannot wedge a
	// worker tick. Zero means the default of 30 seconds.
	Timeout time.Duration
}

// Client talks to the ledger node and execution endpoint over HTTP.
// Submission success only means the transaction was accepted for broadcast;
// callers must treat submitted executions as in flight, not settled.
type Client struct {
	nodeURL     string
	executorURL string
	programID   string
	privateKey  string
	httpClient  *http.Client
}

// NewClient creates a ledger Client from the given configuration.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	executorURL := cfg.ExecutorURL
	if executorURL == "" {
		executorURL = cfg.NodeURL
	}
	return &Client{
		nodeURL:     cfg.NodeURL,
		executorURL: executorURL,
		programID:   cfg.ProgramID,
		privateKey:  cfg.PrivateKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// executeRequest is the JSON body posted to the execution endpoint.
type executeRequest struct {
	PrivateKey string   `json:"private_key"`
	ProgramID  string   `json:"program_id"`
	Function   string   `json:"function_name"`
	Inputs     []string `json:"inputs"`
	Fee        uint64   `json:"fee"`
}

// SubmitExecution submits a named program execution with ordered inputs and
// a fee in microcredits, returning the broadcast transaction id. It fails
// with *SubmissionError when the node rejects the transaction or is
// unreachable.
func (c *Client) SubmitExecution(ctx context.Context, function string, inputs []Value, fee uint64) (string, error) {
	wire := make([]string, len(inputs))
	for i, v := range inputs {
		wire[i] = v.Wire()
	}

	body, err := json.Marshal(executeRequest{
		PrivateKey: c.privateKey,
		ProgramID:  c.programID,
		Function:   function,
		Inputs:     wire,
		Fee:        fee,
	})
	if err != nil {
		return "", &SubmissionError{Function: function, Err: err}
	}

	endpoint := c.executorURL + "/program/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &SubmissionError{Function: function, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SubmissionError{Function: function, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &SubmissionError{Function: function, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmissionError{
			Function: function,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody),
		}
	}

	// The endpoint responds with the transaction id as a JSON string.
	var txID string
	if err := json.Unmarshal(respBody, &txID); err != nil {
		return "", &SubmissionError{Function: function, Err: fmt.Errorf("decode response: %w", err)}
	}
	if txID == "" {
		return "", &SubmissionError{Function: function, Err: fmt.Errorf("empty transaction id in response")}
	}

	return txID, nil
}

// QueryMapping reads a program mapping value by key. It returns
// domain.ErrNotFound when the key is absent, which is expected for markets
// not yet created on-chain, and *QueryError for every other failure.
func (c *Client) QueryMapping(ctx context.Context, mapping, key string) (string, error) {
	endpoint := fmt.Sprintf("%s/program/%s/mapping/%s/%s",
		c.nodeURL,
		url.PathEscape(c.programID),
		url.PathEscape(mapping),
		url.PathEscape(key),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &QueryError{Mapping: mapping, Key: key, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &QueryError{Mapping: mapping, Key: key, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("ledger: mapping %s[%s]: %w", mapping, key, domain.ErrNotFound)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &QueryError{Mapping: mapping, Key: key, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &QueryError{
			Mapping: mapping,
			Key:     key,
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	// The node responds with the record text as a JSON string, or the JSON
	// literal null when the key has no value yet.
	var record *string
	if err := json.Unmarshal(body, &record); err != nil {
		return "", &QueryError{Mapping: mapping, Key: key, Err: fmt.Errorf("decode response: %w", err)}
	}
	if record == nil || *record == "" {
		return "", fmt.Errorf("ledger: mapping %s[%s]: %w", mapping, key, domain.ErrNotFound)
	}

	return *record, nil
}
