package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
)

type ollamaProvider struct{ cfg Config }

// NewOllama returns the Ollama /api/chat adapter.
func NewOllama(cfg Config) ModelProvider { return ollamaProvider{cfg: cfg} }

func (ollamaProvider) Name() string        { return "ollama" }
func (ollamaProvider) APIKeyEnv() string    { return "OLLAMA_API_KEY" }
func (ollamaProvider) RequiresAPIKey() bool { return false }

func normalizedOllamaModel(model string) string {
	model = strings.TrimSpace(model)
	for _, prefix := range []string{"ollama:", "ollama/", "ollama-"} {
		if strings.HasPrefix(model, prefix) {
			return strings.TrimPrefix(model, prefix)
		}
	}
	return model
}

func (p ollamaProvider) baseURL() string {
	if base := strings.TrimSpace(p.cfg.OllamaBaseURL); base != "" {
		return base
	}
	return "http://localhost:11434"
}

func (ollamaProvider) BuildHistory(agent boardstore.Agent, userPrompt string) History {
	return History{
		{"role": "system", "content": agent.SystemPrompt},
		{"role": "user", "content": userPrompt},
	}
}

func (ollamaProvider) AppendToolResult(agent boardstore.Agent, history History, toolName string, args map[string]interface{}, toolResponse string, callID string) History {
	id := callID
	if id == "" {
		id = "tool_call_1"
	}
	history = append(history, Message{
		"role": "assistant",
		"tool_calls": []interface{}{
			map[string]interface{}{
				"id":   id,
				"type": "function",
				"function": map[string]interface{}{
					"name":      toolName,
					"arguments": argsToJSONString(args),
				},
			},
		},
	})
	history = append(history, Message{
		"role":         "tool",
		"tool_call_id": id,
		"name":         toolName,
		"content":      toolResponse,
	})
	return history
}

func (ollamaProvider) ToolsPayload(agent boardstore.Agent) interface{} {
	out := make([]interface{}, 0, len(agent.Tools))
	for _, t := range agent.Tools {
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

func (p ollamaProvider) Endpoint(agent boardstore.Agent) string {
	return strings.TrimSuffix(p.baseURL(), "/") + "/api/chat"
}

func (ollamaProvider) Headers(apiKey string) map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

func (ollamaProvider) RequestBody(agent boardstore.Agent, history History, tools interface{}) interface{} {
	body := map[string]interface{}{
		"model":    normalizedOllamaModel(agent.Model),
		"messages": history,
		"stream":   false,
	}
	if arr, ok := tools.([]interface{}); ok && len(arr) > 0 {
		body["tools"] = tools
	}
	return body
}

func (ollamaProvider) ParseResponse(raw []byte) (ModelAction, error) {
	var v struct {
		Message struct {
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string      `json:"name"`
					Arguments interface{} `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ModelAction{}, fmt.Errorf("parse ollama response: %w", err)
	}

	if len(v.Message.ToolCalls) > 0 {
		tc := v.Message.ToolCalls[0]
		if tc.Function.Name != "" {
			return ModelAction{Kind: ActionToolCall, Name: tc.Function.Name, Args: decodeFunctionArgs(tc.Function.Arguments), CallID: tc.ID}, nil
		}
	}
	if len(v.Message.Content) > 0 {
		var asString string
		if err := json.Unmarshal(v.Message.Content, &asString); err == nil && asString != "" {
			return ModelAction{Kind: ActionText, Content: asString}, nil
		}
		var segments []struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(v.Message.Content, &segments); err == nil {
			var combined strings.Builder
			for _, s := range segments {
				combined.WriteString(s.Text)
			}
			if combined.Len() > 0 {
				return ModelAction{Kind: ActionText, Content: combined.String()}, nil
			}
		}
	}
	if v.Response != "" {
		return ModelAction{Kind: ActionText, Content: v.Response}, nil
	}
	return ModelAction{}, fmt.Errorf("no tool call or text response from the model")
}
