package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: `"20s"`, want: 20 * time.Second},
		{name: "milliseconds", input: `"1500ms"`, want: 1500 * time.Millisecond},
		{name: "invalid duration", input: `"invalid"`, wantErr: true},
		{name: "number", input: `20`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)

			var y Duration
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &y))
			assert.Equal(t, tt.want, y.Duration)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  string
		wantErr  bool
		check    func(t *testing.T, cfg *FileConfig)
	}{
		{
			name:     "yaml config",
			filename: "test.yaml",
			content: `baseURL: http://127.0.0.1:8080/
engine: rod
headless: true
parallel: 4
linkedTitleTimeout: 30s
scrapeTimeout: 5s
titlesFile: out/titles.txt
logLevel: debug`,
			check: func(t *testing.T, cfg *FileConfig) {
				assert.Equal(t, "http://127.0.0.1:8080/", cfg.BaseURL)
				assert.Equal(t, "rod", cfg.Engine)
				require.NotNil(t, cfg.Headless)
				assert.True(t, *cfg.Headless)
				require.NotNil(t, cfg.Parallel)
				assert.Equal(t, 4, *cfg.Parallel)
				require.NotNil(t, cfg.LinkedTitleTimeout)
				assert.Equal(t, 30*time.Second, cfg.LinkedTitleTimeout.Duration)
				assert.Nil(t, cfg.NavigationTimeout)
				assert.Equal(t, "out/titles.txt", cfg.TitlesFile)
			},
		},
		{
			name:     "json config",
			filename: "test.json",
			content: `{
  "fixture": "rows.csv",
  "failOnConsoleError": true,
  "screenshotDir": "screenshots",
  "navigationTimeout": "15s"
}`,
			check: func(t *testing.T, cfg *FileConfig) {
				assert.Equal(t, "rows.csv", cfg.Fixture)
				require.NotNil(t, cfg.FailOnConsoleError)
				assert.True(t, *cfg.FailOnConsoleError)
				assert.Equal(t, "screenshots", cfg.ScreenshotDir)
				assert.Equal(t, 15*time.Second, cfg.NavigationTimeout.Duration)
			},
		},
		{
			name:     "invalid yaml",
			filename: "test.yaml",
			content:  `invalid: yaml: content:`,
			wantErr:  true,
		},
		{
			name:     "invalid json",
			filename: "test.json",
			content:  `{invalid json}`,
			wantErr:  true,
		},
		{
			name:     "unsupported format",
			filename: "test.txt",
			content:  `some content`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, tt.filename)
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0644))

			cfg, err := LoadConfig(configPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.Empty(t, FindConfigFile())

	for _, filename := range []string{
		"homepagetests.yaml",
		"homepagetests.json",
		".homepagetests.yml",
	} {
		files, _ := filepath.Glob("*homepagetests*")
		for _, f := range files {
			os.Remove(f)
		}

		require.NoError(t, os.WriteFile(filename, []byte("test"), 0644))
		assert.Equal(t, filename, FindConfigFile())
	}
}

func TestApply(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://bonigarcia.dev/selenium-webdriver-java/", cfg.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.LinkedTitleTimeout)
	assert.Equal(t, 10*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, "titles.txt", cfg.TitlesFile)
	assert.False(t, cfg.Headless)

	cfg.Apply(nil)
	assert.Equal(t, Default(), cfg)

	headless := true
	parallel := 2
	cfg.Apply(&FileConfig{
		Engine:        "rod",
		Headless:      &headless,
		Parallel:      &parallel,
		ScrapeTimeout: &Duration{Duration: 3 * time.Second},
	})
	assert.Equal(t, "rod", cfg.Engine)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 2, cfg.Parallel)
	assert.Equal(t, 3*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 20*time.Second, cfg.LinkedTitleTimeout, "unset fields keep their value")
	assert.Equal(t, "https://bonigarcia.dev/selenium-webdriver-java/", cfg.BaseURL)
}

func TestRemoteEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "http://fake-endpoint/")
	assert.Equal(t, "http://fake-endpoint/", RemoteEndpoint())

	t.Setenv(EndpointEnv, "")
	assert.Empty(t, RemoteEndpoint())
}
