package docpipe

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the largest input accepted, in bytes (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// HTML renders RTF input as HTML in addition to plain text.
	HTML bool `json:"html" yaml:"html"`

	// StylePrefix prefixes the CSS class names of RTF color spans.
	StylePrefix string `json:"style_prefix" yaml:"style_prefix"`

	// Sanitize passes rendered HTML through an allow-list policy.
	Sanitize bool `json:"sanitize" yaml:"sanitize"`

	// Markdown converts the rendered HTML to Markdown.
	Markdown bool `json:"markdown" yaml:"markdown"`

	// CachePath enables the SQLite result cache at this path.
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// Root confines files named by MCP and connectivity requests to this
	// directory. Empty means paths are used as given.
	Root string `json:"root" yaml:"root"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns the configuration LoadConfig starts from.
func DefaultConfig() Config {
	return Config{
		MaxFileSize: 100 * 1024 * 1024,
		Sanitize:    true,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

var cssIdent = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*$`)

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0")
	}
	if c.StylePrefix != "" && !cssIdent.MatchString(c.StylePrefix) {
		return fmt.Errorf("style_prefix %q is not a CSS identifier", c.StylePrefix)
	}
	return nil
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// variant names the detected format and the output options that change a
// cached result.
func (c *Config) variant(f Format) string {
	return fmt.Sprintf("format=%s;html=%t;sanitize=%t;markdown=%t;prefix=%s", f, c.HTML, c.Sanitize, c.Markdown, c.StylePrefix)
}
