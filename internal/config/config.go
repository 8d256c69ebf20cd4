package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LLMConfig holds all reply-generation configuration
type LLMConfig struct {
	// Core settings
	Provider string `json:"provider"` // gemini-cli, ollama, bedrock
	Command  string `json:"command"`  // binary invoked by the gemini-cli provider
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"` // For AWS Bedrock
	APIKey   string `json:"api_key"`
	Timeout  string `json:"timeout"`

	// Template file path (relative to config dir or absolute)
	ReplyTemplate string `json:"reply_template"`

	// Inline prompt override (optional - takes precedence over file)
	// Available variables: {{name}}, {{message}}
	ReplyPrompt string `json:"reply_prompt,omitempty"`
}

// BrowserConfig holds the Chrome session settings
type BrowserConfig struct {
	// EntryURL is the messaging client entry point
	EntryURL string `json:"entry_url"`

	// ProfileDir persists cookies and local storage so an authenticated
	// session survives restarts. The QR code only needs scanning once.
	ProfileDir string `json:"profile_dir"`

	Headless     bool `json:"headless"`
	WindowWidth  int  `json:"window_width"`
	WindowHeight int  `json:"window_height"`
}

// MonitorConfig holds the control-loop timing and dedup settings
type MonitorConfig struct {
	PollInterval   string `json:"poll_interval"`
	StartupTimeout string `json:"startup_timeout"` // time allowed for the QR scan
	ElementWait    string `json:"element_wait"`    // bounded wait for UI elements

	// Settle delays between page interactions
	ChatOpenDelay     string `json:"chat_open_delay"`
	RenderDelay       string `json:"render_delay"`
	FocusDelay        string `json:"focus_delay"`
	PreSendDelay      string `json:"pre_send_delay"`
	ConversationPause string `json:"conversation_pause"`

	// DedupWindowCycles is the number of poll cycles between wholesale
	// clears of the processed-conversation set. The window is measured in
	// cycles, not wall-clock time: changing poll_interval scales it.
	DedupWindowCycles int `json:"dedup_window_cycles"`
}

// JournalConfig controls the optional reply journal. Disabled by default:
// with it off, the browser profile directory is the only durable state.
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Config holds all configuration for the responder
type Config struct {
	Browser BrowserConfig `json:"browser"`
	Monitor MonitorConfig `json:"monitor"`
	LLM     LLMConfig     `json:"llm"`
	Journal JournalConfig `json:"journal"`

	// SelectorsFile optionally overrides the compiled element selectors
	// (YAML, see selectors.go) so drift in the host page can be fixed
	// without a rebuild.
	SelectorsFile string `json:"selectors_file"`

	// Logging
	LogFile string `json:"log_file"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: DefaultBrowserConfig(),
		Monitor: DefaultMonitorConfig(),
		LLM:     DefaultLLMConfig(),
		Journal: JournalConfig{Enabled: false, Path: ""},
		LogFile: "",
	}
}

// DefaultBrowserConfig returns default browser session configuration
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		EntryURL:     "https://web.whatsapp.com",
		ProfileDir:   DefaultProfileDir(),
		Headless:     false,
		WindowWidth:  1280,
		WindowHeight: 900,
	}
}

// DefaultMonitorConfig returns default control-loop configuration
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:      "5s",
		StartupTimeout:    "120s",
		ElementWait:       "20s",
		ChatOpenDelay:     "2s",
		RenderDelay:       "1500ms",
		FocusDelay:        "300ms",
		PreSendDelay:      "500ms",
		ConversationPause: "3s",
		DedupWindowCycles: 60,
	}
}

// DefaultLLMConfig returns default reply-generation configuration
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "gemini-cli",
		Command:  "gemini",
		// Model stays empty by default: the gemini binary picks its own,
		// while ollama and bedrock require one to be configured.
		Model:         "",
		Endpoint:      "http://localhost:11434/api/generate",
		Timeout:       "60s",
		ReplyTemplate: "templates/reply.md",
		// No inline prompt in defaults - use the template file or fallback
		ReplyPrompt: "",
	}
}

// LoadConfig loads configuration from file, falling back to defaults
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Paths in the file may use ~/ shorthand
	cfg.Browser.ProfileDir = expandPath(cfg.Browser.ProfileDir)
	cfg.Journal.Path = expandPath(cfg.Journal.Path)
	cfg.SelectorsFile = expandPath(cfg.SelectorsFile)
	cfg.LogFile = expandPath(cfg.LogFile)

	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wareply", "config.json")
}

// ConfigPath resolves the configuration file location: the WAREPLY_CONFIG
// environment variable wins, otherwise the default path is used. There are
// no CLI flags.
func ConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("WAREPLY_CONFIG")); p != "" {
		return expandPath(p)
	}
	return DefaultConfigPath()
}

// DefaultProfileDir returns the default browser profile directory path
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wareply", "profile")
}

// DefaultJournalPath returns the default reply journal database path
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wareply", "journal.db")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetLLMTimeout returns the parsed reply-generation timeout
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetPollInterval returns the parsed poll interval
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Monitor.PollInterval, 5*time.Second)
}

// GetStartupTimeout returns the parsed session-establishment timeout
func (c *Config) GetStartupTimeout() time.Duration {
	return parseDuration(c.Monitor.StartupTimeout, 120*time.Second)
}

// GetElementWait returns the parsed bounded wait for element resolution
func (c *Config) GetElementWait() time.Duration {
	return parseDuration(c.Monitor.ElementWait, 20*time.Second)
}

// GetChatOpenDelay returns the settle delay after opening a conversation
func (c *Config) GetChatOpenDelay() time.Duration {
	return parseDuration(c.Monitor.ChatOpenDelay, 2*time.Second)
}

// GetRenderDelay returns the settle delay for message rendering
func (c *Config) GetRenderDelay() time.Duration {
	return parseDuration(c.Monitor.RenderDelay, 1500*time.Millisecond)
}

// GetFocusDelay returns the settle delay after focusing the compose box
func (c *Config) GetFocusDelay() time.Duration {
	return parseDuration(c.Monitor.FocusDelay, 300*time.Millisecond)
}

// GetPreSendDelay returns the pause before the final submit keystroke
func (c *Config) GetPreSendDelay() time.Duration {
	return parseDuration(c.Monitor.PreSendDelay, 500*time.Millisecond)
}

// GetConversationPause returns the pause between conversations in one cycle
func (c *Config) GetConversationPause() time.Duration {
	return parseDuration(c.Monitor.ConversationPause, 3*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// LoadTemplate loads a template with proper priority: file first, then inline, then fallback
func LoadTemplate(templatePath, inlinePrompt, fallbackPrompt string) string {
	// First priority: Try to load from template file if path is specified
	if strings.TrimSpace(templatePath) != "" {
		// Make path relative to config directory if not absolute
		var fullPath string
		if filepath.IsAbs(templatePath) {
			fullPath = templatePath
		} else {
			configDir := filepath.Dir(DefaultConfigPath())
			fullPath = filepath.Join(configDir, templatePath)
		}

		if content, err := os.ReadFile(fullPath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	// Second priority: Use inline prompt if provided
	if strings.TrimSpace(inlinePrompt) != "" {
		return inlinePrompt
	}

	// Final fallback: Use provided fallback prompt
	return fallbackPrompt
}

// GetReplyPrompt returns the reply prompt, loading from template file if needed
func (c *LLMConfig) GetReplyPrompt() string {
	fallback := "El usuario {{name}} me escribio: {{message}}. " +
		"Estoy ocupado programando. " +
		"Genera una respuesta corta, amable y profesional diciendo que " +
		"respondere en breve. Solo devuelve el texto de la respuesta, " +
		"sin comillas, sin explicaciones adicionales, sin formato markdown."
	return LoadTemplate(c.ReplyTemplate, c.ReplyPrompt, fallback)
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
