// Package config loads the gateway's configuration: an optional YAML file
// overridden by environment variables, with LoadWithEnv kept separate from
// Load so tests can inject a fake environment without touching the process's
// real one.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Router   RouterConfig   `yaml:"router"`
}

type UpstreamConfig struct {
	Transport string            `yaml:"transport"` // "stdio" (default) or "http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	Cwd       string            `yaml:"cwd"`
	NotionURL string            `yaml:"notion_url"`
}

type CacheConfig struct {
	StorePath           string        `yaml:"store_path"`
	TTL                 time.Duration `yaml:"ttl"`
	IdleRefreshSeconds  time.Duration `yaml:"idle_refresh_seconds"`
	LoadDocumentContent bool          `yaml:"load_document_content"`
	AccountEmails       []string      `yaml:"account_emails"`
	UserAccountIDs      []string      `yaml:"user_account_ids"`
}

type RouterConfig struct {
	CoherenceWindowSeconds time.Duration `yaml:"coherence_window_seconds"`
}

func DefaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			Transport: "stdio",
			Command:   "npx",
			Args:      []string{"-y", "mcp-remote"},
		},
		Cache: CacheConfig{
			StorePath:          defaultStorePath(),
			TTL:                300 * time.Second,
			IdleRefreshSeconds: 60 * time.Second,
		},
		Router: RouterConfig{
			CoherenceWindowSeconds: 30 * time.Second,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, "Library", "Application Support", "Linear", "IndexedDB")
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function, so tests can supply isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(configPath(getenv)); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configPath(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oh-my-linear", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "oh-my-linear", "config.yaml")
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("LINEAR_OFFICIAL_MCP_TRANSPORT"); v != "" {
		if v != "stdio" && v != "http" {
			return fmt.Errorf("LINEAR_OFFICIAL_MCP_TRANSPORT must be \"stdio\" or \"http\", got %q", v)
		}
		cfg.Upstream.Transport = v
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_HEADERS"); v != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(v), &headers); err != nil {
			logInvalidEnv("LINEAR_OFFICIAL_MCP_HEADERS", err)
		} else {
			cfg.Upstream.Headers = headers
		}
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_COMMAND"); v != "" {
		cfg.Upstream.Command = v
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_ARGS"); v != "" {
		if args, ok := parseArgsEnv(v); ok {
			cfg.Upstream.Args = args
		}
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_ENV"); v != "" {
		var env map[string]string
		if err := json.Unmarshal([]byte(v), &env); err != nil {
			logInvalidEnv("LINEAR_OFFICIAL_MCP_ENV", err)
		} else {
			cfg.Upstream.Env = env
		}
	}
	if v := getenv("LINEAR_OFFICIAL_MCP_CWD"); v != "" {
		cfg.Upstream.Cwd = v
	}
	if v := getenv("NOTION_OFFICIAL_MCP_URL"); v != "" {
		cfg.Upstream.NotionURL = v
	}

	if v := getenv("LINEAR_FAST_STORE_PATH"); v != "" {
		cfg.Cache.StorePath = v
	}
	if v := getenv("LINEAR_FAST_COHERENCE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.CoherenceWindowSeconds = time.Duration(n) * time.Second
		} else {
			logInvalidEnv("LINEAR_FAST_COHERENCE_WINDOW_SECONDS", err)
		}
	}
	if v := getenv("LINEAR_FAST_IDLE_REFRESH_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.IdleRefreshSeconds = time.Duration(n) * time.Second
		} else {
			logInvalidEnv("LINEAR_FAST_IDLE_REFRESH_SECONDS", err)
		}
	}
	if v := getenv("LINEAR_FAST_LOAD_DOCUMENT_CONTENT"); v == "1" {
		cfg.Cache.LoadDocumentContent = true
	}
	if v := getenv("LINEAR_FAST_ACCOUNT_EMAILS"); v != "" {
		cfg.Cache.AccountEmails = splitCSV(v)
	} else if v := getenv("LINEAR_FAST_ACCOUNT_EMAIL"); v != "" {
		cfg.Cache.AccountEmails = []string{v}
	}
	if v := getenv("LINEAR_FAST_USER_ACCOUNT_IDS"); v != "" {
		cfg.Cache.UserAccountIDs = splitCSV(v)
	} else if v := getenv("LINEAR_FAST_USER_ACCOUNT_ID"); v != "" {
		cfg.Cache.UserAccountIDs = []string{v}
	}

	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseArgsEnv implements the fallback chain for
// LINEAR_OFFICIAL_MCP_ARGS: JSON array first, then a shell-quoted string,
// else the caller keeps the existing default.
func parseArgsEnv(v string) ([]string, bool) {
	var args []string
	if err := json.Unmarshal([]byte(v), &args); err == nil {
		return args, true
	}
	if words, ok := splitShellWords(v); ok {
		return words, true
	}
	logInvalidEnv("LINEAR_OFFICIAL_MCP_ARGS", fmt.Errorf("not a JSON array or shell-quoted string"))
	return nil, false
}

// splitShellWords is a minimal shell-word splitter supporting single and
// double quotes, used only as the second fallback for MCP_ARGS parsing; no
// third-party shlex-equivalent appears anywhere in the example pack.
func splitShellWords(s string) ([]string, bool) {
	var words []string
	var cur strings.Builder
	var quote rune
	inWord := false

	flush := func() {
		if inWord {
			words = append(words, cur.String())
			cur.Reset()
			inWord = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			flush()
		default:
			inWord = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, false
	}
	flush()
	return words, true
}

// logInvalidEnv logs and ignores an env var whose value does not parse; the
// corresponding default value still applies.
func logInvalidEnv(name string, err error) {
	log.Printf("[config] ignoring invalid %s: %v", name, err)
}
