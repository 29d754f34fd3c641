package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/tomatyss/taskter/internal/boardstore"
)

func webSearchDeclaration() boardstore.FunctionDeclaration {
	return boardstore.FunctionDeclaration{
		Name:        "web_search",
		Description: "Search the web and return a short extracted summary.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
			"required": []string{"query"},
		},
	}
}

type duckDuckGoResponse struct {
	Heading      string `json:"Heading"`
	AbstractText string `json:"AbstractText"`
}

func webSearch(ctx context.Context, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	base := os.Getenv("SEARCH_API_ENDPOINT")
	if base == "" {
		base = "https://api.duckduckgo.com/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid SEARCH_API_ENDPOINT: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_redirect", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "taskter/0.1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed: %s", resp.Status)
	}

	var parsed duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Heading == "" && parsed.AbstractText == "" {
		return "No results", nil
	}
	return fmt.Sprintf("%s: %s", parsed.Heading, parsed.AbstractText), nil
}
