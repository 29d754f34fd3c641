package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tomatyss/taskter/internal/boardstore"
)

type openAIProvider struct {
	cfg   Config
	style requestStyle
}

// NewOpenAI returns the OpenAI adapter in the given request style
// (Chat Completions or Responses API).
func NewOpenAI(cfg Config, style requestStyle) ModelProvider {
	return openAIProvider{cfg: cfg, style: style}
}

func (openAIProvider) Name() string        { return "openai" }
func (openAIProvider) APIKeyEnv() string    { return "OPENAI_API_KEY" }
func (openAIProvider) RequiresAPIKey() bool { return true }

func (p openAIProvider) BuildHistory(agent boardstore.Agent, userPrompt string) History {
	if p.style == requestStyleResponses {
		return History{
			{
				"role": "user",
				"content": []interface{}{
					map[string]interface{}{"type": "input_text", "text": userPrompt},
				},
			},
		}
	}
	return History{
		{"role": "system", "content": agent.SystemPrompt},
		{"role": "user", "content": userPrompt},
	}
}

func (p openAIProvider) AppendToolResult(agent boardstore.Agent, history History, toolName string, args map[string]interface{}, toolResponse string, callID string) History {
	id := callID
	if id == "" {
		id = "tool_call_1"
	}
	argsString := argsToJSONString(args)

	if p.style == requestStyleResponses {
		history = append(history, Message{
			"type":      "function_call",
			"call_id":   id,
			"name":      toolName,
			"arguments": argsString,
		})
		history = append(history, Message{
			"type":    "function_call_output",
			"call_id": id,
			"output":  toolResponse,
		})
		return history
	}

	history = append(history, Message{
		"role": "assistant",
		"tool_calls": []interface{}{
			map[string]interface{}{
				"id":   id,
				"type": "function",
				"function": map[string]interface{}{
					"name":      toolName,
					"arguments": argsString,
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

func (p openAIProvider) ToolsPayload(agent boardstore.Agent) interface{} {
	if p.style == requestStyleResponses {
		out := make([]interface{}, 0, len(agent.Tools))
		for _, t := range agent.Tools {
			out = append(out, map[string]interface{}{
				"type":        "function",
				"name":        t.Name,
				"description": t.Description,
				"parameters":  withAdditionalPropertiesFalse(t.Parameters),
				"strict":      true,
			})
		}
		return out
	}
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

// withAdditionalPropertiesFalse mutates a JSON-Schema-shaped parameters
// value to satisfy the Responses API's strict mode: every object schema
// gets additionalProperties:false and every property key listed in
// required.
func withAdditionalPropertiesFalse(parameters interface{}) interface{} {
	raw, err := json.Marshal(parameters)
	if err != nil {
		return parameters
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return parameters
	}
	if t, _ := obj["type"].(string); t != "object" {
		return parameters
	}
	if _, ok := obj["additionalProperties"]; !ok {
		obj["additionalProperties"] = false
	}
	props, _ := obj["properties"].(map[string]interface{})
	if props != nil {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		existing, _ := obj["required"].([]interface{})
		required := make([]string, 0, len(existing)+len(keys))
		seen := make(map[string]bool)
		for _, r := range existing {
			if s, ok := r.(string); ok && !seen[s] {
				required = append(required, s)
				seen[s] = true
			}
		}
		for _, k := range keys {
			if !seen[k] {
				required = append(required, k)
				seen[k] = true
			}
		}
		obj["required"] = required
	}
	return obj
}

func (p openAIProvider) Endpoint(agent boardstore.Agent) string {
	if p.style == requestStyleResponses {
		return p.responsesEndpoint()
	}
	return p.chatEndpoint()
}

func (p openAIProvider) responsesEndpoint() string {
	if e := strings.TrimSpace(p.cfg.OpenAIResponsesEndpoint); e != "" {
		return e
	}
	base := strings.TrimSpace(p.cfg.OpenAIBaseURL)
	if base == "" {
		base = "https://api.openai.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/responses"
}

func (p openAIProvider) chatEndpoint() string {
	if e := strings.TrimSpace(p.cfg.OpenAIChatEndpoint); e != "" {
		return e
	}
	base := strings.TrimSpace(p.cfg.OpenAIBaseURL)
	if base == "" {
		base = "https://api.openai.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/chat/completions"
}

func (openAIProvider) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
}

func (p openAIProvider) RequestBody(agent boardstore.Agent, history History, tools interface{}) interface{} {
	if p.style == requestStyleResponses {
		body := map[string]interface{}{
			"model":        agent.Model,
			"instructions": agent.SystemPrompt,
			"input":        history,
			"tool_choice":  "auto",
		}
		if arr, ok := tools.([]interface{}); ok && len(arr) > 0 {
			body["tools"] = tools
		}
		if fmtVal := p.responseFormatOverride(); fmtVal != nil {
			body["response_format"] = fmtVal
		}
		return body
	}
	body := map[string]interface{}{
		"model":       agent.Model,
		"messages":    history,
		"tools":       tools,
		"tool_choice": "auto",
	}
	if fmtVal := p.responseFormatOverride(); fmtVal != nil {
		body["response_format"] = fmtVal
	}
	return body
}

func (p openAIProvider) responseFormatOverride() interface{} {
	raw := strings.TrimSpace(p.cfg.OpenAIResponseFormat)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "{") {
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
		return nil
	}
	return map[string]interface{}{"type": raw}
}

func (openAIProvider) ParseResponse(raw []byte) (ModelAction, error) {
	var v map[string]interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ModelAction{}, fmt.Errorf("parse openai response: %w", err)
	}

	if action, ok := parseResponsesOutput(v); ok {
		return action, nil
	}
	if action, ok := parseChatChoice(v); ok {
		return action, nil
	}
	return ModelAction{}, fmt.Errorf("no tool call or text response from the model")
}

func parseResponsesOutput(v map[string]interface{}) (ModelAction, bool) {
	items, ok := v["output"].([]interface{})
	if !ok {
		return ModelAction{}, false
	}
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch item["type"] {
		case "function_call":
			name, _ := item["name"].(string)
			if name == "" {
				continue
			}
			callID, _ := item["call_id"].(string)
			if callID == "" {
				callID, _ = item["id"].(string)
			}
			return ModelAction{Kind: ActionToolCall, Name: name, Args: decodeFunctionArgs(item["arguments"]), CallID: callID}, true
		case "message":
			contentArr, _ := item["content"].([]interface{})
			for _, c := range contentArr {
				part, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				if part["type"] == "tool_call" {
					name, _ := part["name"].(string)
					if name == "" {
						continue
					}
					callID, _ := part["id"].(string)
					return ModelAction{Kind: ActionToolCall, Name: name, Args: decodeFunctionArgs(part["arguments"]), CallID: callID}, true
				}
				if part["type"] == "output_text" {
					if text, ok := part["text"].(string); ok {
						return ModelAction{Kind: ActionText, Content: text}, true
					}
				}
			}
		}
	}
	if text, ok := v["output_text"].(string); ok {
		return ModelAction{Kind: ActionText, Content: text}, true
	}
	return ModelAction{}, false
}

func parseChatChoice(v map[string]interface{}) (ModelAction, bool) {
	choices, ok := v["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return ModelAction{}, false
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return ModelAction{}, false
	}
	message, _ := choice["message"].(map[string]interface{})
	if message == nil {
		return ModelAction{}, false
	}
	if toolCalls, ok := message["tool_calls"].([]interface{}); ok && len(toolCalls) > 0 {
		tc, ok := toolCalls[0].(map[string]interface{})
		if ok {
			callID, _ := tc["id"].(string)
			fn, _ := tc["function"].(map[string]interface{})
			name, _ := fn["name"].(string)
			if name != "" {
				return ModelAction{Kind: ActionToolCall, Name: name, Args: decodeFunctionArgs(fn["arguments"]), CallID: callID}, true
			}
		}
	}
	if content, ok := message["content"].(string); ok && content != "" {
		return ModelAction{Kind: ActionText, Content: content}, true
	}
	return ModelAction{}, false
}

func decodeFunctionArgs(v interface{}) map[string]interface{} {
	switch val := v.(type) {
	case string:
		return decodeArgsString(val)
	case map[string]interface{}:
		return val
	default:
		return map[string]interface{}{}
	}
}
