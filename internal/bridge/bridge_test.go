package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioBridge_ForwardsLineAndWritesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "result": "ok", "id": 1})
		w.Write(body)
	}))
	defer srv.Close()

	var out bytes.Buffer
	b := &StdioBridge{
		In:         strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":1}` + "\n"),
		Out:        &out,
		Client:     srv.Client(),
		BackendURL: srv.URL,
	}

	err := b.Run(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":"ok","id":1}`, strings.TrimSpace(out.String()))
}

func TestStdioBridge_InvalidJSONIsSkippedWithoutReply(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	input := "{not json\n" + `{"jsonrpc":"2.0","method":"ping","id":2}` + "\n"
	b := &StdioBridge{
		In:         strings.NewReader(input),
		Out:        &out,
		Client:     srv.Client(),
		BackendURL: srv.URL,
	}

	err := b.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, called, "the valid second line should still be forwarded")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1, "no reply should be emitted for the malformed line")
}

type erroringDoer struct{}

func (erroringDoer) Do(req *http.Request) (*http.Response, error) {
	return nil, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "connection refused" }

func TestStdioBridge_TransportErrorBecomesJSONRPCError(t *testing.T) {
	var out bytes.Buffer
	b := &StdioBridge{
		In:         strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":3}` + "\n"),
		Out:        &out,
		Client:     erroringDoer{},
		BackendURL: "http://127.0.0.1:1",
	}

	err := b.Run(context.Background())
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &reply))
	assert.Equal(t, "2.0", reply["jsonrpc"])
	errObj := reply["error"].(map[string]any)
	assert.Equal(t, float64(-32603), errObj["code"])
	assert.Contains(t, errObj["message"], "connection refused")
	assert.Nil(t, reply["id"])
}

func TestStdioBridge_EmptyLinesAreSkipped(t *testing.T) {
	called := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	b := &StdioBridge{
		In:         strings.NewReader("\n\n" + `{"jsonrpc":"2.0","method":"ping","id":1}` + "\n\n"),
		Out:        &out,
		Client:     srv.Client(),
		BackendURL: srv.URL,
	}

	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, 1, called)
}

func TestStdioBridge_DumpRecordsAllThreeLinesOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","result":"ok","id":1}`))
	}))
	defer srv.Close()

	dumpPath := filepath.Join(t.TempDir(), "dump.log")
	dump, err := NewMessageDump(dumpPath)
	require.NoError(t, err)

	var out bytes.Buffer
	b := &StdioBridge{
		In:         strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":1}` + "\n"),
		Out:        &out,
		Client:     srv.Client(),
		BackendURL: srv.URL,
		Dump:       dump,
	}

	require.NoError(t, b.Run(context.Background()))
	require.NoError(t, dump.Close())

	contents, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	text := string(contents)
	assert.Contains(t, text, "CLIENT → PROXY")
	assert.Contains(t, text, "BACKEND → PROXY")
	assert.Contains(t, text, "PROXY → CLIENT")
	assert.Contains(t, text, `"result":"ok"`)
}

func TestStdioBridge_DumpRecordsBackendErrorOnTransportFailure(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "dump.log")
	dump, err := NewMessageDump(dumpPath)
	require.NoError(t, err)

	var out bytes.Buffer
	b := &StdioBridge{
		In:         strings.NewReader(`{"jsonrpc":"2.0","method":"ping","id":3}` + "\n"),
		Out:        &out,
		Client:     erroringDoer{},
		BackendURL: "http://127.0.0.1:1",
		Dump:       dump,
	}

	require.NoError(t, b.Run(context.Background()))
	require.NoError(t, dump.Close())

	contents, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	text := string(contents)

	// Even on transport failure, the BACKEND → PROXY record must still be
	// written (the synthesized JSON-RPC error stands in for the missing
	// backend response), not silently dropped.
	assert.Contains(t, text, "CLIENT → PROXY")
	assert.Contains(t, text, "BACKEND → PROXY")
	assert.Contains(t, text, "PROXY → CLIENT")
	assert.Contains(t, text, "connection refused")

	backendLineCount := strings.Count(text, "BACKEND → PROXY")
	require.Equal(t, 1, backendLineCount)
}
