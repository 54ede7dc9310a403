package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret  string
		Issuer     string
		TokenTTL   time.Duration
		BcryptCost int
	}
	Admin struct {
		Email     string
		Password  string
		FirstName string
		LastName  string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		URLTTL    time.Duration
	}
	AWS struct {
		Profile string
	}
	Upload struct {
		MaxBytes int64
	}
	RateLimit struct {
		AuthPerMinute int
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("VACATIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/vacations.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "vacations-api")
	v.SetDefault("auth.tokenttl", "3h")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.firstname", "Site")
	v.SetDefault("admin.lastname", "Admin")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "vacation-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.urlttl", "15m")
	v.SetDefault("aws.profile", "")
	v.SetDefault("upload.maxbytes", 5<<20)
	v.SetDefault("ratelimit.authperminute", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// HasAdmin reports whether a bootstrap admin account is configured.
func (c Config) HasAdmin() bool {
	return c.Admin.Email != "" && c.Admin.Password != ""
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth token ttl must be positive"))
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("admin email and password must be set together"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload max bytes must be positive"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if !ok || key == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
