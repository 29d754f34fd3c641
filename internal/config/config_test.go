package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TASKTER_DISABLE_HOST_CONFIG", "1")
	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataDir != DataDirName {
		t.Errorf("expected default data dir %q, got %q", DataDirName, cfg.Paths.DataDir)
	}
	if cfg.Paths.Board != filepath.Join(DataDirName, "board.json") {
		t.Errorf("unexpected board path: %s", cfg.Paths.Board)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com" {
		t.Errorf("unexpected openai base url: %s", cfg.OpenAI.BaseURL)
	}
	if cfg.OpenAI.ChatEndpoint != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("unexpected chat endpoint: %s", cfg.OpenAI.ChatEndpoint)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama base url: %s", cfg.Ollama.BaseURL)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	t.Setenv("TASKTER_DISABLE_HOST_CONFIG", "1")
	dir := t.TempDir()
	p := filepath.Join(dir, "config.toml")
	data := "[paths]\ndata_dir = \"/tmp/custom\"\n\n[providers.gemini]\napi_key = \"file-key\"\n"
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(Overrides{ConfigFile: p})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataDir != "/tmp/custom" {
		t.Errorf("expected data_dir from file, got %s", cfg.Paths.DataDir)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Errorf("expected gemini api key from file, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoad_LegacyEnvOverridesFile(t *testing.T) {
	t.Setenv("TASKTER_DISABLE_HOST_CONFIG", "")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("expected env key to win, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoad_CLIOverrideWinsOverEverything(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(Overrides{GeminiAPIKey: "flag-key"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "flag-key" {
		t.Errorf("expected CLI override to win, got %q", cfg.Gemini.APIKey)
	}
}

func TestAPIKeyFor(t *testing.T) {
	cfg := &Resolved{}
	cfg.OpenAI.APIKey = "o"
	cfg.Gemini.APIKey = "g"
	cfg.Ollama.APIKey = "ol"

	cases := map[string]string{"openai": "o", "gemini": "g", "ollama": "ol", "unknown": ""}
	for provider, want := range cases {
		if got := cfg.APIKeyFor(provider); got != want {
			t.Errorf("APIKeyFor(%s) = %q, want %q", provider, got, want)
		}
	}
}

func TestEnvFlag(t *testing.T) {
	cases := []struct {
		val  string
		want bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"FALSE", false},
		{"off", false},
		{"1", true},
		{"true", true},
		{"yes", true},
	}
	for _, c := range cases {
		t.Setenv("TASKTER_TEST_FLAG", c.val)
		if got := EnvFlag("TASKTER_TEST_FLAG"); got != c.want {
			t.Errorf("EnvFlag(%q) = %v, want %v", c.val, got, c.want)
		}
	}
}

func TestCleanString(t *testing.T) {
	if v, ok := cleanString("  "); ok || v != "" {
		t.Errorf("expected empty+false for blank input, got %q %v", v, ok)
	}
	if v, ok := cleanString("  x  "); !ok || v != "x" {
		t.Errorf("expected trimmed x, got %q %v", v, ok)
	}
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("FOO=from_file\nBAR=bar_value\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FOO", "from_env")
	os.Unsetenv("BAR")

	LoadDotEnv(p)

	if os.Getenv("FOO") != "from_env" {
		t.Errorf("expected existing env var preserved, got %q", os.Getenv("FOO"))
	}
	if os.Getenv("BAR") != "bar_value" {
		t.Errorf("expected BAR loaded from .env, got %q", os.Getenv("BAR"))
	}
}
