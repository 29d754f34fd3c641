package provider

import (
	"encoding/json"
	"fmt"

	"github.com/tomatyss/taskter/internal/boardstore"
)

type geminiProvider struct{}

// NewGemini returns the Gemini generateContent adapter.
func NewGemini() ModelProvider { return geminiProvider{} }

func (geminiProvider) Name() string          { return "gemini" }
func (geminiProvider) APIKeyEnv() string      { return "GEMINI_API_KEY" }
func (geminiProvider) RequiresAPIKey() bool   { return true }

func (geminiProvider) BuildHistory(agent boardstore.Agent, userPrompt string) History {
	return History{
		{
			"role": "user",
			"parts": []interface{}{
				map[string]interface{}{"text": fmt.Sprintf("System: %s\nUser: %s", agent.SystemPrompt, userPrompt)},
			},
		},
	}
}

func (geminiProvider) AppendToolResult(agent boardstore.Agent, history History, toolName string, args map[string]interface{}, toolResponse string, callID string) History {
	history = append(history, Message{
		"role": "model",
		"parts": []interface{}{
			map[string]interface{}{"functionCall": map[string]interface{}{"name": toolName, "args": cloneArgs(args)}},
		},
	})
	history = append(history, Message{
		"role": "tool",
		"parts": []interface{}{
			map[string]interface{}{"functionResponse": map[string]interface{}{
				"name":     toolName,
				"response": map[string]interface{}{"content": toolResponse},
			}},
		},
	})
	return history
}

func (geminiProvider) ToolsPayload(agent boardstore.Agent) interface{} {
	return map[string]interface{}{"functionDeclarations": agent.Tools}
}

func (geminiProvider) Endpoint(agent boardstore.Agent) string {
	return fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", agent.Model)
}

func (geminiProvider) Headers(apiKey string) map[string]string {
	return map[string]string{
		"x-goog-api-key": apiKey,
		"Content-Type":   "application/json",
	}
}

func (geminiProvider) RequestBody(agent boardstore.Agent, history History, tools interface{}) interface{} {
	return map[string]interface{}{
		"contents": history,
		"tools":    []interface{}{tools},
	}
}

func (geminiProvider) ParseResponse(raw []byte) (ModelAction, error) {
	var v struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text         string `json:"text"`
					FunctionCall *struct {
						Name string                 `json:"name"`
						Args map[string]interface{} `json:"args"`
					} `json:"functionCall"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ModelAction{}, fmt.Errorf("parse gemini response: %w", err)
	}
	if len(v.Candidates) == 0 || len(v.Candidates[0].Content.Parts) == 0 {
		return ModelAction{}, fmt.Errorf("no tool call or text response from the model")
	}
	part := v.Candidates[0].Content.Parts[0]
	if part.FunctionCall != nil && part.FunctionCall.Name != "" {
		args := part.FunctionCall.Args
		if args == nil {
			args = map[string]interface{}{}
		}
		return ModelAction{Kind: ActionToolCall, Name: part.FunctionCall.Name, Args: args}, nil
	}
	if part.Text != "" {
		return ModelAction{Kind: ActionText, Content: part.Text}, nil
	}
	return ModelAction{}, fmt.Errorf("no tool call or text response from the model")
}
