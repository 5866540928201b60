package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // REMINDER_TIMEZONE must resolve in slim images

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string `yaml:"app_port"`

	MySQLHost string `yaml:"mysql_host"`
	MySQLPort string `yaml:"mysql_port"`
	MySQLDB   string `yaml:"mysql_db"`
	MySQLUser string `yaml:"mysql_user"`
	MySQLPass string `yaml:"mysql_pass"`

	GormLogLevel string `yaml:"gorm_log_level"`
	LogLevel     string `yaml:"log_level"`
	// LogFormat is json or text.
	LogFormat    string `yaml:"log_format"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	IdempTTLSecs int `yaml:"idempotency_ttl_seconds"`

	// SMTPHost empty means mail is logged instead of sent.
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	SMTPFrom string `yaml:"smtp_from"`

	DispatchWorkers   int `yaml:"dispatch_workers"`
	DispatchQueueSize int `yaml:"dispatch_queue_size"`

	// ReminderInterval of zero disables the in-process sweep ticker.
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	ReminderTimezone string        `yaml:"reminder_timezone"`

	ReturnMaxPhotos     int   `yaml:"return_max_photos"`
	ReturnMaxPhotoBytes int64 `yaml:"return_max_photo_bytes"`

	EntitasRoles []string `yaml:"entitas_roles"`
}

func defaults() *Config {
	return &Config{
		AppPort:   "8080",
		MySQLHost: "mysql",
		MySQLPort: "3306",
		MySQLDB:   "assetloan",
		MySQLUser: "assetloan",
		MySQLPass: "assetloan",

		GormLogLevel: "warn",
		LogLevel:     "info",
		LogFormat:    "json",
		RedisAddr:    "redis:6379",
		IdempTTLSecs: 300,

		SMTPPort: "587",
		SMTPFrom: "no-reply@assetloan.local",

		DispatchWorkers:   4,
		DispatchQueueSize: 256,

		ReminderInterval: time.Hour,
		ReminderTimezone: "Asia/Jakarta",

		ReturnMaxPhotos:     5,
		ReturnMaxPhotoBytes: 5 << 20,

		EntitasRoles: []string{"head", "finance", "admin", "others"},
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load starts from the defaults, applies the YAML file named by CONFIG_FILE
// if any, then the environment. Env always wins.
func Load() (*Config, error) {
	c := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

// LoadFile overlays the keys present in the YAML file onto c.
func (c *Config) LoadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppPort = getenv("APP_PORT", c.AppPort)
	c.MySQLHost = getenv("MYSQL_HOST", c.MySQLHost)
	c.MySQLPort = getenv("MYSQL_PORT", c.MySQLPort)
	c.MySQLDB = getenv("MYSQL_DB", c.MySQLDB)
	c.MySQLUser = getenv("MYSQL_USER", c.MySQLUser)
	c.MySQLPass = getenv("MYSQL_PASS", c.MySQLPass)
	c.GormLogLevel = getenv("GORM_LOG_LEVEL", c.GormLogLevel)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenv("LOG_FORMAT", c.LogFormat)

	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getenvInt("REDIS_DB", c.RedisDB)
	c.IdempTTLSecs = getenvInt("IDEMPOTENCY_TTL_SECONDS", c.IdempTTLSecs)

	c.SMTPHost = getenv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getenv("SMTP_PORT", c.SMTPPort)
	c.SMTPUser = getenv("SMTP_USER", c.SMTPUser)
	c.SMTPPass = getenv("SMTP_PASS", c.SMTPPass)
	c.SMTPFrom = getenv("SMTP_FROM", c.SMTPFrom)

	c.DispatchWorkers = getenvInt("DISPATCH_WORKERS", c.DispatchWorkers)
	c.DispatchQueueSize = getenvInt("DISPATCH_QUEUE_SIZE", c.DispatchQueueSize)

	if v := os.Getenv("REMINDER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReminderInterval = d
		}
	}
	c.ReminderTimezone = getenv("REMINDER_TIMEZONE", c.ReminderTimezone)

	c.ReturnMaxPhotos = getenvInt("RETURN_MAX_PHOTOS", c.ReturnMaxPhotos)
	if v := os.Getenv("RETURN_MAX_PHOTO_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ReturnMaxPhotoBytes = n
		}
	}
	if v := os.Getenv("ENTITAS_ROLES"); v != "" {
		c.EntitasRoles = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.SMTPHost != "" {
		if _, err := net.LookupPort("tcp", c.SMTPPort); err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", c.SMTPPort, err)
		}
		if c.SMTPFrom == "" {
			return errors.New("missing SMTP_FROM")
		}
	}
	if c.DispatchWorkers <= 0 || c.DispatchQueueSize <= 0 {
		return errors.New("DISPATCH_WORKERS and DISPATCH_QUEUE_SIZE must be positive")
	}
	if c.ReminderInterval < 0 {
		return errors.New("REMINDER_INTERVAL must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", c.ReminderTimezone, err)
	}
	if c.ReturnMaxPhotos < 0 || c.ReturnMaxPhotoBytes < 0 {
		return errors.New("return photo limits must not be negative")
	}
	return nil
}

// Location is the zone whose calendar days decide which reminders are due.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ReminderTimezone)
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps stored instants unambiguous
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) SMTPAddr() string { return net.JoinHostPort(c.SMTPHost, c.SMTPPort) }
