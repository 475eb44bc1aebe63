package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EndpointEnv holds the remote browser endpoint. When it is set and not
// blank, sessions run remote and headless.
const EndpointEnv = "REMOTE_URL"

// FileConfig represents the configuration loaded from a file
type FileConfig struct {
	BaseURL            string    `yaml:"baseURL" json:"baseURL"`
	Fixture            string    `yaml:"fixture" json:"fixture"`
	Engine             string    `yaml:"engine" json:"engine"`
	Headless           *bool     `yaml:"headless" json:"headless"`
	ChromePath         string    `yaml:"chromePath" json:"chromePath"`
	Parallel           *int      `yaml:"parallel" json:"parallel"`
	LinkedTitleTimeout *Duration `yaml:"linkedTitleTimeout" json:"linkedTitleTimeout"`
	ScrapeTimeout      *Duration `yaml:"scrapeTimeout" json:"scrapeTimeout"`
	NavigationTimeout  *Duration `yaml:"navigationTimeout" json:"navigationTimeout"`
	TitlesFile         string    `yaml:"titlesFile" json:"titlesFile"`
	ScreenshotDir      string    `yaml:"screenshotDir" json:"screenshotDir"`
	FailOnConsoleError *bool     `yaml:"failOnConsoleError" json:"failOnConsoleError"`
	LogLevel           string    `yaml:"logLevel" json:"logLevel"`
}

// Duration is a custom type for unmarshaling duration strings
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Config is the effective configuration after defaults, file and flags.
type Config struct {
	BaseURL            string
	Fixture            string
	Engine             string
	Headless           bool
	ChromePath         string
	Parallel           int
	LinkedTitleTimeout time.Duration
	ScrapeTimeout      time.Duration
	NavigationTimeout  time.Duration
	TitlesFile         string
	ScreenshotDir      string
	FailOnConsoleError bool
	LogLevel           string
}

func Default() Config {
	return Config{
		BaseURL:            "https://bonigarcia.dev/selenium-webdriver-java/",
		Fixture:            filepath.Join("testdata", "testdata.csv"),
		Engine:             "chromedp",
		Parallel:           1,
		LinkedTitleTimeout: 20 * time.Second,
		ScrapeTimeout:      10 * time.Second,
		NavigationTimeout:  10 * time.Second,
		TitlesFile:         "titles.txt",
		LogLevel:           "info",
	}
}

// Apply overrides c with every field set in f.
func (c *Config) Apply(f *FileConfig) {
	if f == nil {
		return
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.Fixture != "" {
		c.Fixture = f.Fixture
	}
	if f.Engine != "" {
		c.Engine = f.Engine
	}
	if f.Headless != nil {
		c.Headless = *f.Headless
	}
	if f.ChromePath != "" {
		c.ChromePath = f.ChromePath
	}
	if f.Parallel != nil {
		c.Parallel = *f.Parallel
	}
	if f.LinkedTitleTimeout != nil {
		c.LinkedTitleTimeout = f.LinkedTitleTimeout.Duration
	}
	if f.ScrapeTimeout != nil {
		c.ScrapeTimeout = f.ScrapeTimeout.Duration
	}
	if f.NavigationTimeout != nil {
		c.NavigationTimeout = f.NavigationTimeout.Duration
	}
	if f.TitlesFile != "" {
		c.TitlesFile = f.TitlesFile
	}
	if f.ScreenshotDir != "" {
		c.ScreenshotDir = f.ScreenshotDir
	}
	if f.FailOnConsoleError != nil {
		c.FailOnConsoleError = *f.FailOnConsoleError
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
}

// RemoteEndpoint returns the value of EndpointEnv, which may be empty.
func RemoteEndpoint() string {
	return os.Getenv(EndpointEnv)
}

// LoadConfig loads configuration from file
func LoadConfig(filename string) (*FileConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config FileConfig
	ext := filepath.Ext(filename)

	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".json":
		err = json.Unmarshal(data, &config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// FindConfigFile searches for a config file in the current directory
func FindConfigFile() string {
	configNames := []string{
		"homepagetests.yaml",
		"homepagetests.yml",
		"homepagetests.json",
		".homepagetests.yaml",
		".homepagetests.yml",
		".homepagetests.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}

	return ""
}
