package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_PORT", "")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.AppPort != "8080" || c.DispatchWorkers != 4 || c.ReminderInterval != time.Hour {
		t.Fatalf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
app_port: "9000"
mysql_db: loans_test
smtp_host: smtp.example.com
dispatch_workers: 8
reminder_interval: 30m
reminder_timezone: UTC
entitas_roles: [head, finance]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("DISPATCH_QUEUE_SIZE", "64")
	t.Setenv("ENTITAS_ROLES", "head, admin ,")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.AppPort != "9100" {
		t.Fatalf("env should win over file: %q", c.AppPort)
	}
	if c.MySQLDB != "loans_test" || c.SMTPHost != "smtp.example.com" || c.DispatchWorkers != 8 {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.MySQLHost != "mysql" {
		t.Fatalf("keys missing from the file keep their default: %q", c.MySQLHost)
	}
	if c.ReminderInterval != 30*time.Minute || c.DispatchQueueSize != 64 {
		t.Fatalf("interval=%v queue=%d", c.ReminderInterval, c.DispatchQueueSize)
	}
	if !reflect.DeepEqual(c.EntitasRoles, []string{"head", "admin"}) {
		t.Fatalf("roles = %v", c.EntitasRoles)
	}
	if c.SMTPAddr() != "smtp.example.com:587" {
		t.Fatalf("smtp addr = %s", c.SMTPAddr())
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("dispatch_workers: [oops"), 0o600)
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing mysql host", func(c *Config) { c.MySQLHost = "" }, "missing MySQL config"},
		{"bad mysql port", func(c *Config) { c.MySQLPort = "not-a-port" }, "invalid MYSQL_PORT"},
		{"missing app port", func(c *Config) { c.AppPort = "" }, "missing APP_PORT"},
		{"bad smtp port", func(c *Config) { c.SMTPHost = "smtp"; c.SMTPPort = "x y" }, "invalid SMTP_PORT"},
		{"no workers", func(c *Config) { c.DispatchWorkers = 0 }, "DISPATCH_WORKERS"},
		{"negative interval", func(c *Config) { c.ReminderInterval = -time.Second }, "REMINDER_INTERVAL"},
		{"unknown timezone", func(c *Config) { c.ReminderTimezone = "Mars/Olympus" }, "invalid REMINDER_TIMEZONE"},
		{"negative photo limit", func(c *Config) { c.ReturnMaxPhotos = -1 }, "photo limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	c := defaults()
	c.MySQLHost, c.MySQLPort = "db", "3307"
	dsn := c.MySQLDSN()
	if !strings.HasPrefix(dsn, "assetloan:assetloan@tcp(db:3307)/assetloan?") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn = %s", dsn)
	}
}
