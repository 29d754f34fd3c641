package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatyss/taskter/internal/boardstore"
	"github.com/tomatyss/taskter/internal/tools"
)

func newTestServer(t *testing.T, in, out *bytes.Buffer) *Server {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".taskter")
	store := boardstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	reg := tools.NewRegistry()
	tools.RegisterBuiltins(reg, store)
	return New(reg, in, out)
}

func readBareLines(t *testing.T, out *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("unmarshal response line %q: %v", line, err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestServe_BareLineFraming_FullRoundTrip(t *testing.T) {
	var in, out bytes.Buffer
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"run_bash","arguments":{"command":"echo hi"}}}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":5,"method":"shutdown"}`)

	s := newTestServer(t, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	msgs := readBareLines(t, &out)
	if len(msgs) != 5 {
		t.Fatalf("expected 5 responses, got %d: %+v", len(msgs), msgs)
	}

	initResult, ok := msgs[0]["result"].(map[string]interface{})
	if !ok || initResult["protocolVersion"] != ProtocolVersion {
		t.Errorf("unexpected initialize result: %+v", msgs[0])
	}

	listResult, ok := msgs[2]["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected tools/list response: %+v", msgs[2])
	}
	toolList, ok := listResult["tools"].([]interface{})
	if !ok || len(toolList) == 0 {
		t.Fatalf("expected a non-empty tools list, got %+v", listResult)
	}
	foundRunBash := false
	for _, entry := range toolList {
		m := entry.(map[string]interface{})
		if m["name"] == "run_bash" {
			foundRunBash = true
		}
	}
	if !foundRunBash {
		t.Error("expected run_bash in tools/list result")
	}

	callResult, ok := msgs[3]["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected tools/call response: %+v", msgs[3])
	}
	if callResult["isError"] != false {
		t.Errorf("expected isError=false for a successful run_bash call, got %+v", callResult)
	}
}

func TestServe_UnknownMethod_ReturnsMethodNotFound(t *testing.T) {
	var in, out bytes.Buffer
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":2,"method":"shutdown"}`)

	s := newTestServer(t, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	msgs := readBareLines(t, &out)
	errObj, ok := msgs[0]["error"].(map[string]interface{})
	if !ok || errObj["code"] != float64(-32601) {
		t.Errorf("expected method-not-found error, got %+v", msgs[0])
	}
}

func TestServe_ContentLengthFraming_RoundTrip(t *testing.T) {
	var in, out bytes.Buffer
	payload := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	fmt.Fprintf(&in, "Content-Length: %d\r\n\r\n%s", len(payload), payload)

	shutdown := `{"jsonrpc":"2.0","id":2,"method":"shutdown"}`
	fmt.Fprintf(&in, "Content-Length: %d\r\n\r\n%s", len(shutdown), shutdown)

	s := newTestServer(t, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	raw := out.String()
	if !strings.HasPrefix(raw, "Content-Length:") {
		t.Fatalf("expected Content-Length-framed response, got %q", raw)
	}
	if strings.Count(raw, "Content-Length:") != 2 {
		t.Errorf("expected one framed response per request, got %q", raw)
	}
}

func TestServe_InitializeWithoutID_SynthesizesOne(t *testing.T) {
	var in, out bytes.Buffer
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","method":"initialize"}`)
	fmt.Fprintln(&in, `{"jsonrpc":"2.0","id":1,"method":"shutdown"}`)

	s := newTestServer(t, &in, &out)
	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	msgs := readBareLines(t, &out)
	id, ok := msgs[0]["id"].(string)
	if !ok || id == "" {
		t.Errorf("expected a synthesized string id on initialize response, got %+v", msgs[0])
	}
}
