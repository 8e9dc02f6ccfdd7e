package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
				assert.Equal(t, 2*time.Hour, cfg.Upload.SessionTTL)
				assert.Equal(t, DefaultSheetName, cfg.Workbook.SheetName)
				assert.Equal(t, 3, cfg.Workbook.SkipRows)
				assert.Equal(t, 2, cfg.Workbook.WindowStart)
				assert.Equal(t, 25, cfg.Workbook.WindowEnd)
				assert.Equal(t, DefaultReportTitle, cfg.Export.Title)
				assert.True(t, cfg.Export.Headless)
				assert.False(t, cfg.Sheets.Enabled)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"GRADES_SERVER_PORT":              "9090",
				"GRADES_UPLOAD_MAX_BYTES":         "2048",
				"GRADES_WORKBOOK_SHEET_NAME":      "Lapas1",
				"GRADES_SECURITY_ALLOWED_ORIGINS": "http://a.lt,http://b.lt",
				"GRADES_EXPORT_NO_SANDBOX":        "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, int64(2048), cfg.Upload.MaxBytes)
				assert.Equal(t, "Lapas1", cfg.Workbook.SheetName)
				assert.Equal(t, []string{"http://a.lt", "http://b.lt"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Export.NoSandbox)
			},
		},
		{
			name: "file values replace defaults but not env",
			env:  map[string]string{"GRADES_SERVER_PORT": "7000"},
			file: `
server:
  port: 6000
  request_timeout: 20s
logging:
  level: debug
export:
  title: Ataskaita
sheets:
  enabled: true
  api_key: key
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
				assert.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "Ataskaita", cfg.Export.Title)
				assert.True(t, cfg.Sheets.Enabled)
				assert.Equal(t, 25, cfg.Workbook.WindowEnd)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"GRADES_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"GRADES_UPLOAD_MAX_BYTES": "lots"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				t.Setenv(ConfigFileEnv, writeConfigFile(t, tt.file))
			} else {
				t.Setenv(ConfigFileEnv, "")
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestMergeConfigs(t *testing.T) {
	file := Config{
		Server:   ServerConfig{Port: 6000},
		Workbook: WorkbookConfig{SheetName: "Lapas"},
	}
	env := *Default()

	none := func(string) (string, bool) { return "", false }
	merged := mergeConfigs(file, env, none)
	assert.Equal(t, 6000, merged.Server.Port)
	assert.Equal(t, "Lapas", merged.Workbook.SheetName)
	assert.Equal(t, env.Upload, merged.Upload, "zero file values keep the current ones")

	portSet := func(name string) (string, bool) { return "8080", name == "GRADES_SERVER_PORT" }
	merged = mergeConfigs(file, env, portSet)
	assert.Equal(t, 8080, merged.Server.Port)
	assert.Equal(t, "Lapas", merged.Workbook.SheetName)
}

func TestMergeConfigs_Flags(t *testing.T) {
	file := Config{
		Server: ServerConfig{OpenBrowser: true},
		Export: ExportConfig{DisablePDF: true},
	}

	none := func(string) (string, bool) { return "", false }
	merged := mergeConfigs(file, *Default(), none)
	assert.True(t, merged.Server.OpenBrowser)
	assert.True(t, merged.Export.DisablePDF)

	pdfSet := func(name string) (string, bool) { return "false", name == "GRADES_EXPORT_DISABLE_PDF" }
	merged = mergeConfigs(file, *Default(), pdfSet)
	assert.True(t, merged.Server.OpenBrowser)
	assert.False(t, merged.Export.DisablePDF, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }, true},
		{"no origins without cors", func(c *Config) {
			c.Security.AllowedOrigins = nil
			c.Security.EnableCORS = false
		}, false},
		{"zero upload limit", func(c *Config) { c.Upload.MaxBytes = 0 }, true},
		{"blank sheet name", func(c *Config) { c.Workbook.SheetName = "  " }, true},
		{"negative skip rows", func(c *Config) { c.Workbook.SkipRows = -1 }, true},
		{"window overlaps name columns", func(c *Config) { c.Workbook.WindowStart = 1 }, true},
		{"empty window", func(c *Config) { c.Workbook.WindowEnd = 2 }, true},
		{"sheets without credentials", func(c *Config) { c.Sheets.Enabled = true }, true},
		{"sheets with api key", func(c *Config) {
			c.Sheets.Enabled = true
			c.Sheets.APIKey = "key"
		}, false},
		{"unknown log output", func(c *Config) { c.Logging.Output = "syslog" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFillsLogFilePath(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = ""
	require.NoError(t, cfg.validate())
	assert.Equal(t, "logs/gradereport.log", cfg.Logging.FilePath)
}

func TestGetConfigFilePath(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 1\n")
	t.Setenv(ConfigFileEnv, path)
	assert.Equal(t, path, getConfigFilePath())

	t.Setenv(ConfigFileEnv, "")
	assert.Equal(t, "", getConfigFilePath())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, DefaultWindowEnd, cfg.Workbook.WindowEnd)
	assert.Equal(t, 4096, cfg.WebSocket.WriteBufferSize)
	assert.Equal(t, 60*time.Second, cfg.Export.Timeout)
}
