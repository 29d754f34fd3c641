package provider

import (
	"testing"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func TestSelect_ExplicitProviderWins(t *testing.T) {
	agent := boardstore.Agent{Model: "gemini-2.5-pro", Provider: "ollama"}
	p := Select(agent, Config{})
	if p.Name() != "ollama" {
		t.Errorf("expected explicit provider tag to win, got %s", p.Name())
	}
}

func TestSelect_InfersFromModelPrefix(t *testing.T) {
	cases := map[string]string{
		"gemini-2.5-pro":  "gemini",
		"gpt-4.1-mini":    "openai",
		"gpt-4o":          "openai",
		"o3-mini":         "openai",
		"ollama:llama3":   "ollama",
		"ollama/llama3":   "ollama",
		"unknown-model-x": "gemini",
	}
	for model, want := range cases {
		p := Select(boardstore.Agent{Model: model}, Config{})
		if p.Name() != want {
			t.Errorf("Select(%q) = %s, want %s", model, p.Name(), want)
		}
	}
}

func TestResolveRequestStyle_PrefixTable(t *testing.T) {
	cases := map[string]requestStyle{
		"gpt-4o":       requestStyleChat,
		"gpt-4.1-mini": requestStyleResponses,
		"gpt-5":        requestStyleResponses,
		"o3-mini":      requestStyleResponses,
	}
	for model, want := range cases {
		got := resolveRequestStyle(model, Config{})
		if got != want {
			t.Errorf("resolveRequestStyle(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestResolveRequestStyle_EnvOverride(t *testing.T) {
	got := resolveRequestStyle("gpt-4o", Config{OpenAIRequestStyle: "responses"})
	if got != requestStyleResponses {
		t.Error("expected env override to force responses style")
	}
}

func TestNormalizedOllamaModel_StripsPrefixes(t *testing.T) {
	cases := map[string]string{
		"ollama:llama3": "llama3",
		"ollama/llama3": "llama3",
		"ollama-llama3": "llama3",
		"llama3":        "llama3",
	}
	for in, want := range cases {
		if got := normalizedOllamaModel(in); got != want {
			t.Errorf("normalizedOllamaModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGeminiParseResponse_Text(t *testing.T) {
	raw := []byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`)
	action, err := NewGemini().ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if action.Kind != ActionText || action.Content != "hello" {
		t.Errorf("unexpected action: %+v", action)
	}
}

func TestGeminiParseResponse_ToolCall(t *testing.T) {
	raw := []byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"run_bash","args":{"command":"ls"}}}]}}]}`)
	action, err := NewGemini().ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if action.Kind != ActionToolCall || action.Name != "run_bash" {
		t.Errorf("unexpected action: %+v", action)
	}
}

func TestOpenAIParseResponse_ChatToolCall(t *testing.T) {
	raw := []byte(`{"choices":[{"message":{"tool_calls":[{"id":"c1","function":{"name":"run_bash","arguments":"{\"command\":\"ls\"}"}}]}}]}`)
	action, err := NewOpenAI(Config{}, requestStyleChat).ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if action.Kind != ActionToolCall || action.Name != "run_bash" || action.CallID != "c1" {
		t.Errorf("unexpected action: %+v", action)
	}
	if action.Args["command"] != "ls" {
		t.Errorf("expected decoded args, got %+v", action.Args)
	}
}

func TestOpenAIParseResponse_ResponsesFunctionCall(t *testing.T) {
	raw := []byte(`{"output":[{"type":"function_call","call_id":"c1","name":"run_bash","arguments":"{\"command\":\"ls\"}"}]}`)
	action, err := NewOpenAI(Config{}, requestStyleResponses).ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if action.Kind != ActionToolCall || action.CallID != "c1" {
		t.Errorf("unexpected action: %+v", action)
	}
}

func TestOpenAIAppendToolResult_ResponsesPreservesCallID(t *testing.T) {
	p := NewOpenAI(Config{}, requestStyleResponses)
	history := p.AppendToolResult(boardstore.Agent{}, nil, "run_bash", map[string]interface{}{"command": "ls"}, "out", "c1")
	if len(history) != 2 {
		t.Fatalf("expected 2 appended messages, got %d", len(history))
	}
	if history[0]["call_id"] != "c1" || history[1]["call_id"] != "c1" {
		t.Errorf("expected matching call_id on both items, got %+v", history)
	}
}

func TestWithAdditionalPropertiesFalse_AddsRequiredAndFlag(t *testing.T) {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{"type": "string"},
		},
	}
	out := withAdditionalPropertiesFalse(params).(map[string]interface{})
	if out["additionalProperties"] != false {
		t.Error("expected additionalProperties:false")
	}
	required, ok := out["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "command" {
		t.Errorf("expected required=[command], got %+v", out["required"])
	}
}

func TestOllamaParseResponse_Text(t *testing.T) {
	raw := []byte(`{"message":{"content":"hi there"}}`)
	action, err := NewOllama(Config{}).ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if action.Kind != ActionText || action.Content != "hi there" {
		t.Errorf("unexpected action: %+v", action)
	}
}
