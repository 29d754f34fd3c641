// Package config resolves Taskter's layered configuration: code defaults,
// an OS-config-directory TOML file, TASKTER__SECTION__KEY environment
// variables (plus a handful of legacy single-name vars), and CLI flag
// overrides, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DataDirName is the default project data directory name.
const DataDirName = ".taskter"

// Overrides are CLI-flag-level settings, the highest-precedence layer.
type Overrides struct {
	ConfigFile string

	DataDir           string
	BoardFile         string
	OKRsFile          string
	LogFile           string
	AgentsFile        string
	DescriptionFile   string
	EmailConfigFile   string
	RunningAgentsFile string
	ResponsesLogFile  string

	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIResponsesEndpoint string
	OpenAIChatEndpoint      string
	OpenAIRequestStyle      string
	OpenAIResponseFormat    string

	GeminiAPIKey string

	OllamaAPIKey  string
	OllamaBaseURL string
}

// OpenAI holds resolved OpenAI provider settings.
type OpenAI struct {
	APIKey            string
	BaseURL           string
	ResponsesEndpoint string
	ChatEndpoint      string
	RequestStyle      string
	ResponseFormat    string
}

// Gemini holds resolved Gemini provider settings.
type Gemini struct {
	APIKey string
}

// Ollama holds resolved Ollama provider settings.
type Ollama struct {
	APIKey  string
	BaseURL string
}

// Paths holds the resolved absolute (or relative-to-cwd) paths to every
// Taskter data file.
type Paths struct {
	DataDir       string
	Board         string
	OKRs          string
	Log           string
	Agents        string
	Description   string
	EmailConfig   string
	RunningAgents string
	ResponsesLog  string
}

// Resolved is the fully-layered configuration.
type Resolved struct {
	Paths             Paths
	OpenAI            OpenAI
	Gemini            Gemini
	Ollama            Ollama
	SearchAPIEndpoint string
}

// APIKeyFor returns the resolved API key for the named provider, or "" if
// none is configured.
func (r *Resolved) APIKeyFor(provider string) string {
	switch provider {
	case "openai":
		return r.OpenAI.APIKey
	case "gemini":
		return r.Gemini.APIKey
	case "ollama":
		return r.Ollama.APIKey
	default:
		return ""
	}
}

// rawConfig mirrors the TOML document shape under config.toml.
type rawConfig struct {
	Paths     rawPaths     `toml:"paths"`
	Providers rawProviders `toml:"providers"`
}

type rawPaths struct {
	DataDir           string `toml:"data_dir"`
	BoardFile         string `toml:"board_file"`
	OKRsFile          string `toml:"okrs_file"`
	LogFile           string `toml:"log_file"`
	AgentsFile        string `toml:"agents_file"`
	DescriptionFile   string `toml:"description_file"`
	EmailConfigFile   string `toml:"email_config_file"`
	RunningAgentsFile string `toml:"running_agents_file"`
	ResponsesLogFile  string `toml:"responses_log_file"`
}

type rawProviders struct {
	OpenAI rawOpenAI `toml:"openai"`
	Gemini rawGemini `toml:"gemini"`
	Ollama rawOllama `toml:"ollama"`
}

type rawOpenAI struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	ResponsesEndpoint string `toml:"responses_endpoint"`
	ChatEndpoint      string `toml:"chat_endpoint"`
	RequestStyle      string `toml:"request_style"`
	ResponseFormat    string `toml:"response_format"`
}

type rawGemini struct {
	APIKey string `toml:"api_key"`
}

type rawOllama struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// EnvFlag reports whether the named environment variable is "on":
// present, and not one of "", "0", "false", "off" (case-insensitive).
// Shared between the configuration loader's TASKTER_DISABLE_HOST_CONFIG
// escape hatch and the MCP server's trace toggles.
func EnvFlag(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "0", "false", "off":
		return false
	default:
		return true
	}
}

func hostConfigDisabled() bool { return EnvFlag("TASKTER_DISABLE_HOST_CONFIG") }

// cleanString trims s and reports "", false if the result is empty,
// matching the original's clean_string helper.
func cleanString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func envOverride(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if cleaned, ok := cleanString(v); ok {
			*target = cleaned
		}
	}
}

// Load resolves the full configuration: defaults, TOML file, env vars,
// then CLI overrides, first-value-found-wins per layer.
func Load(ov Overrides) (*Resolved, error) {
	if !hostConfigDisabled() {
		LoadDotEnv(".env")
	}

	var raw rawConfig
	raw.Paths.DataDir = DataDirName

	configPath := ov.ConfigFile
	if configPath == "" && !hostConfigDisabled() {
		configPath = defaultConfigPath()
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			if err := toml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		} else if ov.ConfigFile != "" {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	applyTaskterEnv(&raw)
	if !hostConfigDisabled() {
		applyLegacyEnv(&raw)
	}
	applyOverrides(&raw, ov)

	return resolve(raw)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskter", "config.toml")
}

// applyTaskterEnv implements the TASKTER__SECTION__KEY env var layer.
func applyTaskterEnv(raw *rawConfig) {
	if v, ok := lookupTaskterEnv("PATHS", "DATA_DIR"); ok {
		raw.Paths.DataDir = v
	}
	if v, ok := lookupTaskterEnv("PATHS", "BOARD_FILE"); ok {
		raw.Paths.BoardFile = v
	}
	if v, ok := lookupTaskterEnv("PATHS", "OKRS_FILE"); ok {
		raw.Paths.OKRsFile = v
	}
	if v, ok := lookupTaskterEnv("PATHS", "LOG_FILE"); ok {
		raw.Paths.LogFile = v
	}
	if v, ok := lookupTaskterEnv("PATHS", "AGENTS_FILE"); ok {
		raw.Paths.AgentsFile = v
	}
	if v, ok := lookupTaskterEnv("PROVIDERS", "OPENAI_API_KEY"); ok {
		raw.Providers.OpenAI.APIKey = v
	}
	if v, ok := lookupTaskterEnv("PROVIDERS", "GEMINI_API_KEY"); ok {
		raw.Providers.Gemini.APIKey = v
	}
	if v, ok := lookupTaskterEnv("PROVIDERS", "OLLAMA_API_KEY"); ok {
		raw.Providers.Ollama.APIKey = v
	}
}

func lookupTaskterEnv(section, key string) (string, bool) {
	v, ok := os.LookupEnv("TASKTER__" + section + "__" + key)
	if !ok {
		return "", false
	}
	return cleanString(v)
}

// applyLegacyEnv fills in the named single-var legacy environment
// variables wherever the TOML/TASKTER__ layers left a field unset.
func applyLegacyEnv(raw *rawConfig) {
	if raw.Providers.OpenAI.APIKey == "" {
		envOverride(&raw.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	}
	if raw.Providers.OpenAI.BaseURL == "" {
		envOverride(&raw.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	}
	if raw.Providers.OpenAI.ResponsesEndpoint == "" {
		envOverride(&raw.Providers.OpenAI.ResponsesEndpoint, "OPENAI_RESPONSES_ENDPOINT")
	}
	if raw.Providers.OpenAI.ChatEndpoint == "" {
		envOverride(&raw.Providers.OpenAI.ChatEndpoint, "OPENAI_CHAT_ENDPOINT")
	}
	if raw.Providers.OpenAI.RequestStyle == "" {
		envOverride(&raw.Providers.OpenAI.RequestStyle, "OPENAI_REQUEST_STYLE")
	}
	if raw.Providers.OpenAI.ResponseFormat == "" {
		envOverride(&raw.Providers.OpenAI.ResponseFormat, "OPENAI_RESPONSE_FORMAT")
	}
	if raw.Providers.Gemini.APIKey == "" {
		envOverride(&raw.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	}
	if raw.Providers.Ollama.APIKey == "" {
		envOverride(&raw.Providers.Ollama.APIKey, "OLLAMA_API_KEY")
	}
	if raw.Providers.Ollama.BaseURL == "" {
		envOverride(&raw.Providers.Ollama.BaseURL, "OLLAMA_BASE_URL")
	}
}

func applyOverrides(raw *rawConfig, ov Overrides) {
	if ov.DataDir != "" {
		raw.Paths.DataDir = ov.DataDir
	}
	if ov.BoardFile != "" {
		raw.Paths.BoardFile = ov.BoardFile
	}
	if ov.OKRsFile != "" {
		raw.Paths.OKRsFile = ov.OKRsFile
	}
	if ov.LogFile != "" {
		raw.Paths.LogFile = ov.LogFile
	}
	if ov.AgentsFile != "" {
		raw.Paths.AgentsFile = ov.AgentsFile
	}
	if ov.DescriptionFile != "" {
		raw.Paths.DescriptionFile = ov.DescriptionFile
	}
	if ov.EmailConfigFile != "" {
		raw.Paths.EmailConfigFile = ov.EmailConfigFile
	}
	if ov.RunningAgentsFile != "" {
		raw.Paths.RunningAgentsFile = ov.RunningAgentsFile
	}
	if ov.ResponsesLogFile != "" {
		raw.Paths.ResponsesLogFile = ov.ResponsesLogFile
	}
	if ov.OpenAIAPIKey != "" {
		raw.Providers.OpenAI.APIKey = ov.OpenAIAPIKey
	}
	if ov.OpenAIBaseURL != "" {
		raw.Providers.OpenAI.BaseURL = ov.OpenAIBaseURL
	}
	if ov.OpenAIResponsesEndpoint != "" {
		raw.Providers.OpenAI.ResponsesEndpoint = ov.OpenAIResponsesEndpoint
	}
	if ov.OpenAIChatEndpoint != "" {
		raw.Providers.OpenAI.ChatEndpoint = ov.OpenAIChatEndpoint
	}
	if ov.OpenAIRequestStyle != "" {
		raw.Providers.OpenAI.RequestStyle = ov.OpenAIRequestStyle
	}
	if ov.OpenAIResponseFormat != "" {
		raw.Providers.OpenAI.ResponseFormat = ov.OpenAIResponseFormat
	}
	if ov.GeminiAPIKey != "" {
		raw.Providers.Gemini.APIKey = ov.GeminiAPIKey
	}
	if ov.OllamaAPIKey != "" {
		raw.Providers.Ollama.APIKey = ov.OllamaAPIKey
	}
	if ov.OllamaBaseURL != "" {
		raw.Providers.Ollama.BaseURL = ov.OllamaBaseURL
	}
}

func resolve(raw rawConfig) (*Resolved, error) {
	dataDir := raw.Paths.DataDir
	if dataDir == "" {
		dataDir = DataDirName
	}

	resolvePath := func(explicit, defaultName string) string {
		if explicit != "" {
			return explicit
		}
		return filepath.Join(dataDir, defaultName)
	}

	r := &Resolved{
		Paths: Paths{
			DataDir:       dataDir,
			Board:         resolvePath(raw.Paths.BoardFile, "board.json"),
			OKRs:          resolvePath(raw.Paths.OKRsFile, "okrs.json"),
			Log:           resolvePath(raw.Paths.LogFile, "logs.log"),
			Agents:        resolvePath(raw.Paths.AgentsFile, "agents.json"),
			Description:   resolvePath(raw.Paths.DescriptionFile, "description.md"),
			EmailConfig:   resolvePath(raw.Paths.EmailConfigFile, "email_config.json"),
			RunningAgents: resolvePath(raw.Paths.RunningAgentsFile, "running_agents.json"),
			ResponsesLog:  resolvePath(raw.Paths.ResponsesLogFile, "api_responses.log"),
		},
	}

	baseURL, ok := cleanString(raw.Providers.OpenAI.BaseURL)
	if !ok {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	r.OpenAI.BaseURL = baseURL
	r.OpenAI.APIKey, _ = cleanString(raw.Providers.OpenAI.APIKey)
	if v, ok := cleanString(raw.Providers.OpenAI.ResponsesEndpoint); ok {
		r.OpenAI.ResponsesEndpoint = v
	} else {
		r.OpenAI.ResponsesEndpoint = baseURL + "/v1/responses"
	}
	if v, ok := cleanString(raw.Providers.OpenAI.ChatEndpoint); ok {
		r.OpenAI.ChatEndpoint = v
	} else {
		r.OpenAI.ChatEndpoint = baseURL + "/v1/chat/completions"
	}
	r.OpenAI.RequestStyle, _ = cleanString(raw.Providers.OpenAI.RequestStyle)
	r.OpenAI.ResponseFormat, _ = cleanString(raw.Providers.OpenAI.ResponseFormat)

	r.Gemini.APIKey, _ = cleanString(raw.Providers.Gemini.APIKey)

	r.Ollama.APIKey, _ = cleanString(raw.Providers.Ollama.APIKey)
	ollamaBase, ok := cleanString(raw.Providers.Ollama.BaseURL)
	if !ok {
		ollamaBase = "http://localhost:11434"
	}
	r.Ollama.BaseURL = strings.TrimRight(ollamaBase, "/")

	r.SearchAPIEndpoint, ok = cleanString(os.Getenv("SEARCH_API_ENDPOINT"))
	if !ok {
		r.SearchAPIEndpoint = "https://api.duckduckgo.com/"
	}

	return r, nil
}
