package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ReservedDir is the publish-branch subdirectory holding per-repository
// pagesync settings. Any source change under this directory invalidates
// incremental rendering and forces a full rebuild.
const ReservedDir = ".pagesync"

// Config represents the application configuration
type Config struct {
	Repository Repository       `yaml:"repository"`
	Publish    PublishConfig    `yaml:"publish"`
	Render     RenderConfig     `yaml:"render"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Journal    JournalConfig    `yaml:"journal"`
	Events     EventsConfig     `yaml:"events,omitempty"`
	Daemon     DaemonConfig     `yaml:"daemon,omitempty"`
	Workspace  WorkspaceConfig  `yaml:"workspace,omitempty"`
}

// Repository identifies the source repository to publish documentation for
type Repository struct {
	URL    string      `yaml:"url,omitempty"`
	Path   string      `yaml:"path,omitempty"` // local checkout; cloned from URL when empty
	Name   string      `yaml:"name"`
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Type     string `yaml:"type"` // "ssh", "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// PublishConfig describes the publish branch and push behaviour
type PublishConfig struct {
	Branch     string `yaml:"branch,omitempty"`
	Remote     string `yaml:"remote,omitempty"`
	Production bool   `yaml:"production"` // push only when true
}

// RenderConfig describes rendering inputs shared by every run
type RenderConfig struct {
	AssetsDir string `yaml:"assets_dir,omitempty"` // static styles/scripts/fonts copied each run
}

// ClassifierConfig points at the language-classification service
type ClassifierConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// JournalConfig describes the per-run history journal
type JournalConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite file; ":memory:" for tests, empty disables
}

// EventsConfig describes the optional NATS publish-event stream
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// DaemonConfig describes daemon-mode scheduling and HTTP exposure
type DaemonConfig struct {
	Interval Duration `yaml:"interval,omitempty"`
	Listen   string   `yaml:"listen,omitempty"`
}

// WorkspaceConfig controls where scratch checkouts live
type WorkspaceConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	Persistent bool   `yaml:"persistent"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(".env", ".env.local"); err != nil {
		// Don't fail if .env doesn't exist, just note it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - path supplied by operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Repository.Branch == "" {
		c.Repository.Branch = "main"
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "pages"
	}
	if c.Publish.Remote == "" {
		c.Publish.Remote = "origin"
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = Duration(30 * time.Second)
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = Duration(15 * time.Minute)
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":8099"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "pagesync.published"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Repository.Name == "" {
		return fmt.Errorf("repository.name is required")
	}
	if c.Repository.URL == "" && c.Repository.Path == "" {
		return fmt.Errorf("repository.url or repository.path is required")
	}
	if c.Repository.Branch == c.Publish.Branch {
		return fmt.Errorf("publish.branch must differ from repository.branch (both %q)", c.Publish.Branch)
	}
	if c.Classifier.URL == "" {
		return fmt.Errorf("classifier.url is required")
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return fmt.Errorf("events.nats_url is required when events are enabled")
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Repository: Repository{
			URL:    "https://git.example.com/team/service.git",
			Name:   "service",
			Branch: "main",
			Auth: &AuthConfig{
				Type:  "token",
				Token: "${GIT_TOKEN}",
			},
		},
		Publish: PublishConfig{
			Branch:     "pages",
			Remote:     "origin",
			Production: false,
		},
		Render: RenderConfig{
			AssetsDir: "./assets",
		},
		Classifier: ClassifierConfig{
			URL:     "http://localhost:8080/classify",
			Timeout: Duration(30 * time.Second),
		},
		Journal: JournalConfig{
			Path: "./pagesync-journal.db",
		},
		Daemon: DaemonConfig{
			Interval: Duration(15 * time.Minute),
			Listen:   ":8099",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil { // #nosec G306 - example config is not a secret
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
