// Package provider implements Taskter's provider-neutral adapter layer:
// translating a neutral message history into a specific LLM wire format,
// issuing the HTTP request, and parsing the response back into a single
// ModelAction the Agent Executor can act on regardless of which backend
// answered.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomatyss/taskter/internal/boardstore"
)

// Message is one entry of the neutral transcript. Its shape is
// intentionally loose — each provider interprets and re-serialises it in
// whatever form its wire format expects.
type Message map[string]interface{}

// History is the neutral transcript exchanged with a provider during a
// single agent run.
type History []Message

// ActionKind distinguishes a terminal text answer from a request to
// invoke a tool.
type ActionKind int

const (
	ActionText ActionKind = iota
	ActionToolCall
)

// ModelAction is the parsed result of a single provider call.
type ModelAction struct {
	Kind    ActionKind
	Content string
	Name    string
	Args    map[string]interface{}
	CallID  string
}

// ModelProvider adapts the neutral history to one LLM wire format.
type ModelProvider interface {
	Name() string
	// APIKeyEnv names the env var that unlocks real API calls; when its
	// resolved value is empty the executor enters offline simulation.
	APIKeyEnv() string
	// RequiresAPIKey reports whether a missing key should trigger offline
	// simulation. Ollama overrides this to false: a local server needs no
	// key.
	RequiresAPIKey() bool
	BuildHistory(agent boardstore.Agent, userPrompt string) History
	AppendToolResult(agent boardstore.Agent, history History, toolName string, args map[string]interface{}, toolResponse string, callID string) History
	ToolsPayload(agent boardstore.Agent) interface{}
	Endpoint(agent boardstore.Agent) string
	Headers(apiKey string) map[string]string
	RequestBody(agent boardstore.Agent, history History, tools interface{}) interface{}
	ParseResponse(raw []byte) (ModelAction, error)
}

// Config carries the resolved endpoint/env overrides a provider needs.
// It mirrors config.Resolved's OpenAI/Gemini/Ollama sections without importing
// the config package, keeping provider dependency-free of CLI/env
// plumbing.
type Config struct {
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIChatEndpoint      string
	OpenAIResponsesEndpoint string
	OpenAIRequestStyle      string
	OpenAIResponseFormat    string

	GeminiAPIKey string

	OllamaAPIKey  string
	OllamaBaseURL string
}

// APIKeyFor returns the config-resolved API key for the named provider
// (p.Name()'s "gemini"/"openai"/"ollama"), or "" if the layered resolver
// found none. Mirrors config.Resolved.APIKeyFor without importing the
// config package.
func (c Config) APIKeyFor(providerName string) string {
	switch providerName {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "ollama":
		return c.OllamaAPIKey
	default:
		return ""
	}
}

// Select chooses a ModelProvider for agent, honouring an explicit
// agent.Provider tag first and otherwise inferring from the model-name
// prefix table.
func Select(agent boardstore.Agent, cfg Config) ModelProvider {
	if tag := strings.ToLower(strings.TrimSpace(agent.Provider)); tag != "" {
		switch tag {
		case "gemini":
			return NewGemini()
		case "openai", "openai-chat", "openai_chat":
			return NewOpenAI(cfg, requestStyleChat)
		case "openai-responses", "openai_responses":
			return NewOpenAI(cfg, requestStyleResponses)
		case "ollama":
			return NewOllama(cfg)
		}
	}
	return inferFromModel(agent.Model, cfg)
}

func inferFromModel(model string, cfg Config) ModelProvider {
	lower := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(lower, "ollama:"), strings.HasPrefix(lower, "ollama/"), strings.HasPrefix(lower, "ollama-"):
		return NewOllama(cfg)
	case strings.HasPrefix(lower, "gemini"):
		return NewGemini()
	case isOpenAIModel(lower):
		return NewOpenAI(cfg, resolveRequestStyle(lower, cfg))
	default:
		return NewGemini()
	}
}

func isOpenAIModel(lower string) bool {
	prefixes := []string{"gpt-4", "gpt-5", "gpt-4o", "gpt-4.1", "gpt4", "gpt5", "o1", "o3", "o4", "omni"}
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

type requestStyle int

const (
	requestStyleChat requestStyle = iota
	requestStyleResponses
)

func resolveRequestStyle(lowerModel string, cfg Config) requestStyle {
	switch strings.ToLower(strings.TrimSpace(cfg.OpenAIRequestStyle)) {
	case "responses", "responses_api", "responses-api":
		return requestStyleResponses
	case "chat", "chat_completions", "chat-completions":
		return requestStyleChat
	}
	usesResponses := strings.HasPrefix(lowerModel, "gpt-5") ||
		strings.HasPrefix(lowerModel, "gpt5") ||
		strings.HasPrefix(lowerModel, "gpt-4.1") ||
		strings.HasPrefix(lowerModel, "gpt4.1") ||
		strings.HasPrefix(lowerModel, "o1") ||
		strings.HasPrefix(lowerModel, "o3") ||
		strings.HasPrefix(lowerModel, "o4") ||
		strings.HasPrefix(lowerModel, "omni")
	if usesResponses {
		return requestStyleResponses
	}
	return requestStyleChat
}

// ResponseLogger is satisfied by *boardstore.Store: every request and
// response is appended to api_responses.log before interpretation, which
// is the debugging contract §4.C requires.
type ResponseLogger interface {
	AppendResponseLog(line string) error
}

// Infer issues a single request/response round-trip against provider for
// agent, logging both the outgoing body and the raw response before
// attempting to parse either.
func Infer(ctx context.Context, client *http.Client, logger ResponseLogger, p ModelProvider, agent boardstore.Agent, apiKey string, history History) (ModelAction, error) {
	tools := p.ToolsPayload(agent)
	body := p.RequestBody(agent, history, tools)

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return ModelAction{}, fmt.Errorf("marshal request: %w", err)
	}
	logger.AppendResponseLog(fmt.Sprintf(
		"REQUEST provider=%s model=%s json=%s", p.Name(), agent.Model, string(bodyJSON)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(agent), bytes.NewReader(bodyJSON))
	if err != nil {
		return ModelAction{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range p.Headers(apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return ModelAction{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ModelAction{}, fmt.Errorf("read response: %w", err)
	}
	logger.AppendResponseLog(fmt.Sprintf(
		"provider=%s model=%s json=%s", p.Name(), agent.Model, string(raw)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ModelAction{}, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	return p.ParseResponse(raw)
}

// NewHTTPClient returns a client with a sane request timeout — the
// provider adapter never blocks a caller indefinitely on a hung endpoint.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

func cloneArgs(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

func argsToJSONString(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeArgsString(s string) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
