package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv    string   `yaml:"appEnv"`
	Port      string   `yaml:"port"`
	JWTSecret string   `yaml:"jwtSecret"`
	Origins   []string `yaml:"corsOrigins"`

	DocStore struct {
		Driver      string `yaml:"driver"` // postgres | sqlite | memory
		DatabaseURL string `yaml:"databaseURL"`
		SQLitePath  string `yaml:"sqlitePath"`
	} `yaml:"docstore"`

	Blob struct {
		Driver        string `yaml:"driver"` // r2 | memory
		Endpoint      string `yaml:"endpoint"`
		AccessKey     string `yaml:"accessKey"`
		SecretKey     string `yaml:"secretKey"`
		Bucket        string `yaml:"bucket"`
		PublicBaseURL string `yaml:"publicBaseURL"`
	} `yaml:"blob"`

	Logging struct {
		Path  string `yaml:"path"`
		Level string `yaml:"level"` // trace, debug, info, warn, error
	} `yaml:"logging"`

	Import struct {
		FailurePolicy string `yaml:"failurePolicy"` // abort | continue
	} `yaml:"import"`

	Menu struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"menu"`
}

// Load reads .env (outside production), then the optional YAML file named by
// CONFIG_FILE, then environment variables. Later sources win.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	conf := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, conf); err != nil {
			return nil, fmt.Errorf("cant unmarshal config: %w", err)
		}
	}

	applyEnv(conf)

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func defaults() *Config {
	c := &Config{
		AppEnv:  "development",
		Port:    "8000",
		Origins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
	c.DocStore.Driver = "postgres"
	c.DocStore.SQLitePath = "menucms.db"
	c.Blob.Driver = "r2"
	c.Logging.Level = "info"
	c.Import.FailurePolicy = "abort"
	c.Menu.Timezone = "UTC"
	return c
}

func applyEnv(c *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.AppEnv, "APP_ENV")
	set(&c.Port, "PORT")
	set(&c.JWTSecret, "JWT_SECRET")
	set(&c.DocStore.Driver, "DOCSTORE_DRIVER")
	set(&c.DocStore.DatabaseURL, "DATABASE_URL")
	set(&c.DocStore.SQLitePath, "SQLITE_PATH")
	set(&c.Blob.Driver, "BLOB_DRIVER")
	set(&c.Blob.Endpoint, "R2_ENDPOINT")
	set(&c.Blob.AccessKey, "R2_ACCESS_KEY")
	set(&c.Blob.SecretKey, "R2_SECRET_KEY")
	set(&c.Blob.Bucket, "R2_BUCKET_NAME")
	set(&c.Blob.PublicBaseURL, "R2_PUBLIC_BASE_URL")
	set(&c.Logging.Path, "LOG_PATH")
	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Import.FailurePolicy, "IMPORT_FAILURE_POLICY")
	set(&c.Menu.Timezone, "MENU_TIMEZONE")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Origins = origins
	}
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.DocStore.Driver {
	case "postgres":
		if c.DocStore.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case "sqlite":
		if c.DocStore.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown docstore driver %q", c.DocStore.Driver)
	}

	switch c.Blob.Driver {
	case "r2":
		for key, v := range map[string]string{
			"R2_ENDPOINT":        c.Blob.Endpoint,
			"R2_ACCESS_KEY":      c.Blob.AccessKey,
			"R2_SECRET_KEY":      c.Blob.SecretKey,
			"R2_BUCKET_NAME":     c.Blob.Bucket,
			"R2_PUBLIC_BASE_URL": c.Blob.PublicBaseURL,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
	case "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing env var(s): %s", strings.Join(missing, ", "))
	}

	switch c.Import.FailurePolicy {
	case "abort", "continue":
	default:
		return errors.New("IMPORT_FAILURE_POLICY must be abort or continue")
	}
	return nil
}
