// Package mcp implements a minimal Model Context Protocol stdio server:
// JSON-RPC 2.0 over stdin/stdout, exposing the tool registry's dispatch
// surface to any MCP-speaking client. Translated from the source's
// mcp/mod.rs, which accepts two wire framings and speaks five methods.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tomatyss/taskter/internal/tools"
)

// ProtocolVersion is the MCP revision this server advertises in
// initialize's capability block.
const ProtocolVersion = "2025-06-18"

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server speaks JSON-RPC over an arbitrary reader/writer pair, dispatching
// tools/call into registry.
type Server struct {
	registry *tools.Registry
	in       *bufio.Reader
	out      io.Writer
	trace    *tracer
}

// New wires a Server to registry and the given stdio-like streams. Callers
// typically pass os.Stdin/os.Stdout; tests pass an in-memory pipe.
func New(registry *tools.Registry, in io.Reader, out io.Writer) *Server {
	return &Server{
		registry: registry,
		in:       bufio.NewReader(in),
		out:      out,
		trace:    newTracer(),
	}
}

// Serve reads requests until EOF, a transport error, or a shutdown method
// call, handling each one synchronously and in arrival order — the
// protocol has no need for concurrent in-flight requests here.
func (s *Server) Serve(ctx context.Context) error {
	for {
		framed, raw, err := s.readMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read mcp message: %w", err)
		}
		s.trace.logf("recv: %s", raw)

		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			s.writeResponse(framed, response{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: -32700, Message: "parse error: " + err.Error()},
			})
			continue
		}

		id := req.ID
		if len(id) == 0 && req.Method == "initialize" {
			synth, _ := json.Marshal(uuid.NewString())
			id = synth
		}

		resp := s.handle(ctx, req)
		resp.JSONRPC = "2.0"
		resp.ID = id
		s.writeResponse(framed, resp)

		if req.Method == "shutdown" {
			return nil
		}
	}
}

func (s *Server) handle(ctx context.Context, req request) response {
	switch req.Method {
	case "initialize":
		return response{Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]interface{}{"name": "taskter", "version": "0.1.0"},
		}}
	case "ping":
		return response{Result: map[string]interface{}{}}
	case "tools/list":
		return response{Result: map[string]interface{}{"tools": s.toolList()}}
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	case "shutdown":
		return response{Result: map[string]interface{}{}}
	default:
		return response{Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}}
	}
}

func (s *Server) toolList() []map[string]interface{} {
	decls := s.registry.Declarations()
	out := make([]map[string]interface{}, 0, len(decls))
	for _, d := range decls {
		out = append(out, map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"inputSchema": d.Parameters,
		})
	}
	return out
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) response {
	var call struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return response{Error: &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}}
	}

	result := s.registry.Dispatch(ctx, call.Name, call.Arguments)
	text := result.Output
	if !result.OK {
		text = result.Error
	}
	return response{Result: map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"isError": !result.OK,
	}}
}

// readMessage returns (wasContentLengthFramed, payload, err). The framing
// is detected per-message from the first line: a Content-Length header
// (case-insensitive) switches to header-delimited reading; anything else
// is treated as a complete bare JSON line.
func (s *Server) readMessage() (bool, []byte, error) {
	for {
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			return false, nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if err != nil {
				return false, nil, err
			}
			continue
		}

		if strings.HasPrefix(strings.ToLower(trimmed), "content-length:") {
			length, convErr := strconv.Atoi(strings.TrimSpace(trimmed[len("content-length:"):]))
			if convErr != nil {
				return true, nil, fmt.Errorf("invalid Content-Length header %q: %w", trimmed, convErr)
			}
			for {
				h, herr := s.in.ReadString('\n')
				if herr != nil {
					return true, nil, herr
				}
				if strings.TrimRight(h, "\r\n") == "" {
					break
				}
			}
			body := make([]byte, length)
			if _, err := io.ReadFull(s.in, body); err != nil {
				return true, nil, err
			}
			return true, body, nil
		}

		if err != nil {
			return false, nil, err
		}
		return false, []byte(trimmed), nil
	}
}

func (s *Server) writeResponse(framed bool, resp response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.trace.logf("send: %s", payload)
	if framed {
		fmt.Fprintf(s.out, "Content-Length: %d\r\n\r\n", len(payload))
		s.out.Write(payload)
		return
	}
	s.out.Write(payload)
	s.out.Write([]byte("\n"))
}
