package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{
		NodeURL:    url,
		ProgramID:  "maniifold_pools.aleo",
		PrivateKey: "APrivateKey1test",
	})
}

func TestSubmitExecution(t *testing.T) {
	var gotReq executeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/program/execute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode("at1txid123")
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	inputs := []Value{Field("title"), U64(1767225600)}
	txID, err := client.SubmitExecution(context.Background(), FuncCreatePool, inputs, 500_000)
	if err != nil {
		t.Fatalf("SubmitExecution: %v", err)
	}
	if txID != "at1txid123" {
		t.Errorf("txID = %q", txID)
	}
	if gotReq.Function != FuncCreatePool {
		t.Errorf("function = %q", gotReq.Function)
	}
	if gotReq.Fee != 500_000 {
		t.Errorf("fee = %d", gotReq.Fee)
	}
	if len(gotReq.Inputs) != 2 || gotReq.Inputs[1] != "1767225600u64" {
		t.Errorf("inputs = %v", gotReq.Inputs)
	}
}

func TestSubmitExecutionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient fee", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SubmitExecution(context.Background(), FuncLockPool, []Value{Field("key")}, 1)
	if err == nil {
		t.Fatal("expected submission error")
	}
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("error type = %T, want *SubmissionError", err)
	}
	if subErr.Function != FuncLockPool {
		t.Errorf("Function = %q", subErr.Function)
	}
}

func TestQueryMapping(t *testing.T) {
	record := "{ total_staked: 10u64, option_a_stakes: 4u64, option_b_stakes: 6u64 }"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/program/maniifold_pools.aleo/mapping/pools/123field"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		json.NewEncoder(w).Encode(record)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	got, err := client.QueryMapping(context.Background(), PoolsMapping, "123field")
	if err != nil {
		t.Fatalf("QueryMapping: %v", err)
	}
	if got != record {
		t.Errorf("record = %q", got)
	}
}

func TestQueryMappingNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http 404": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"json null": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("null"))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			client := newTestClient(server.URL)

			_, err := client.QueryMapping(context.Background(), PoolsMapping, "999field")
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("err = %v, want domain.ErrNotFound", err)
			}
			var qErr *QueryError
			if errors.As(err, &qErr) {
				t.Error("not-found must not be a QueryError")
			}
		})
	}
}

func TestQueryMappingServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node out of sync", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.QueryMapping(context.Background(), PoolsMapping, "123field")
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("error type = %T, want *QueryError", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("query failure must be distinct from not-found")
	}
}
