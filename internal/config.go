package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	Site     SiteConfig        `yaml:"site"`
	Markdown MarkdownConfig    `yaml:"markdown"`
	Export   ExportConfig      `yaml:"export"`
	Watch    WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return c.checkOutputDir()
}

// checkOutputDir rejects an output directory that would swallow the content root.
func (c *Config) checkOutputDir() error {
	out, err := filepath.Abs(c.Export.OutputDir)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(c.Content.Root)
	if err != nil {
		return err
	}
	if out == root || strings.HasPrefix(root, out+string(filepath.Separator)) {
		return errors.New("export: output_dir must not contain content.root")
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig locates the Markdown sources.
type ContentConfig struct {
	Root          string `yaml:"root"`
	BlogDir       string `yaml:"blog_dir"`
	BlogRecursive bool   `yaml:"blog_recursive"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.BlogDir, validation.Required, validation.By(notContentRoot)),
	)
}

// notContentRoot rejects a blog directory that resolves to the content root,
// where the blog index would shadow the home page.
func notContentRoot(value any) error {
	dir, _ := value.(string)
	if path.Clean("/"+filepath.ToSlash(dir)) == "/" {
		return errors.New("must be a subdirectory of the content root")
	}
	return nil
}

// SiteConfig holds the page chrome settings.
type SiteConfig struct {
	Title          string `yaml:"title"`
	TitleSeparator string `yaml:"title_separator"`
	BlogTitle      string `yaml:"blog_title"`
	// TemplatesDir overrides the embedded page templates file by file.
	TemplatesDir string `yaml:"templates_dir"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
	)
}

// MarkdownConfig controls rendering.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	LineNumbers    bool   `yaml:"line_numbers"`
}

// ExportConfig controls static snapshot generation.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Workers   int    `yaml:"workers"`
	// InProcess renders pages without going through the HTTP listener.
	InProcess bool `yaml:"in_process"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// WatchConfig controls live reload in serve mode.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 4444,
			},
		},
		Content: ContentConfig{
			Root:    "./content",
			BlogDir: "blog",
		},
		Site: SiteConfig{
			Title:          "mdsite",
			TitleSeparator: " - ",
			BlogTitle:      "Articles",
		},
		Markdown: MarkdownConfig{
			HighlightStyle: "monokai",
		},
		Export: ExportConfig{
			OutputDir: "./build",
			Workers:   4,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}
