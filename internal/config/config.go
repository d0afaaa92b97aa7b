package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Lectern environment variables.
const EnvPrefix = "LECTERN_"

// Synthesis controls the mid-stream and final note synthesis policy.
type Synthesis struct {
	// Window is the number of recent fragments consumed by one mid-stream
	// synthesis round.
	Window int `yaml:"window"`
	// Interval is the time-based trigger threshold, as a duration string.
	Interval string `yaml:"interval"`
	// GracePeriod is how long to wait after a stop signal before running
	// final synthesis, so in-flight segments can still be enqueued.
	GracePeriod string `yaml:"grace_period"`

	// Models in provider/model_name form.
	EnrichModel string `yaml:"enrich_model"`
	NotesModel  string `yaml:"notes_model"`
	FinalModel  string `yaml:"final_model"`
}

// Transcriber selects and configures the speech-to-text provider.
type Transcriber struct {
	Provider string `yaml:"provider"` // openai, deepgram, stub
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// Retrieval controls document chunking and context lookup.
type Retrieval struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	LiveTopK     int `yaml:"live_top_k"`
	FinalTopK    int `yaml:"final_top_k"`
}

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr            string      `yaml:"listen_addr"`
	DBPath                string      `yaml:"db_path"`
	SpoolDir              string      `yaml:"spool_dir"`
	QueueCapacity         int         `yaml:"queue_capacity"`
	Synthesis             Synthesis   `yaml:"synthesis"`
	Transcriber           Transcriber `yaml:"transcriber"`
	Retrieval             Retrieval   `yaml:"retrieval"`
	GDriveFolderID        string      `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string      `yaml:"google_credentials_file"`

	// Secrets come from env vars only and are never serialized to YAML.
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
	DeepgramAPIKey  string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:    ":8080",
		DBPath:        "data/lectern.db",
		SpoolDir:      "data/segments",
		QueueCapacity: 256,
		Synthesis: Synthesis{
			Window:      3,
			Interval:    "60s",
			GracePeriod: "2s",
			EnrichModel: "openai/gpt-4o-mini",
			NotesModel:  "openai/gpt-4o-mini",
			FinalModel:  "openai/gpt-4o",
		},
		Transcriber: Transcriber{
			Provider: "openai",
			Model:    "whisper-1",
		},
		Retrieval: Retrieval{
			ChunkSize:    1200,
			ChunkOverlap: 200,
			LiveTopK:     5,
			FinalTopK:    15,
		},
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedInterval returns the synthesis interval as a time.Duration,
// falling back to 60s if the value is invalid.
func (c *Config) ParsedInterval() time.Duration {
	d, err := time.ParseDuration(c.Synthesis.Interval)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// ParsedGracePeriod returns the stop grace period as a time.Duration,
// falling back to 2s if the value is invalid.
func (c *Config) ParsedGracePeriod() time.Duration {
	d, err := time.ParseDuration(c.Synthesis.GracePeriod)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// WindowSize returns the synthesis fragment window, falling back to 3.
func (c *Config) WindowSize() int {
	if c.Synthesis.Window <= 0 {
		return 3
	}
	return c.Synthesis.Window
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "SPOOL_DIR"); v != "" {
		cfg.SpoolDir = v
	}
	if v := os.Getenv(EnvPrefix + "QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.QueueCapacity = n
		}
	}
	if v := os.Getenv(EnvPrefix + "SYNTHESIS_INTERVAL"); v != "" {
		cfg.Synthesis.Interval = v
	}
	if v := os.Getenv(EnvPrefix + "SYNTHESIS_GRACE_PERIOD"); v != "" {
		cfg.Synthesis.GracePeriod = v
	}
	if v := os.Getenv(EnvPrefix + "ENRICH_MODEL"); v != "" {
		cfg.Synthesis.EnrichModel = v
	}
	if v := os.Getenv(EnvPrefix + "NOTES_MODEL"); v != "" {
		cfg.Synthesis.NotesModel = v
	}
	if v := os.Getenv(EnvPrefix + "FINAL_MODEL"); v != "" {
		cfg.Synthesis.FinalModel = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBER_PROVIDER"); v != "" {
		cfg.Transcriber.Provider = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBER_MODEL"); v != "" {
		cfg.Transcriber.Model = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	switch cfg.Transcriber.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "OpenAI API key not configured — transcription is disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
		}
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			warnings = append(warnings, "Deepgram API key not configured — transcription is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
		}
	case "stub":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcriber provider %q — using openai.", cfg.Transcriber.Provider))
	}

	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" && cfg.GeminiAPIKey == "" {
		warnings = append(warnings, "No LLM API key configured — note synthesis is disabled.")
	}
	if _, err := time.ParseDuration(cfg.Synthesis.Interval); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid synthesis interval %q — using default 60s.", cfg.Synthesis.Interval))
	}
	if _, err := time.ParseDuration(cfg.Synthesis.GracePeriod); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid grace period %q — using default 2s.", cfg.Synthesis.GracePeriod))
	}
	if cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		warnings = append(warnings, "Chunk overlap must be smaller than chunk size — using defaults.")
		cfg.Retrieval.ChunkSize = 1200
		cfg.Retrieval.ChunkOverlap = 200
	}

	return warnings
}
