package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/getmockd/hyperstub/pkg/logging"
)

// EnvPrefix prefixes environment variables.
const EnvPrefix = "HYPERSTUB"

// Defaults.
const (
	DefaultPort            = 4280
	DefaultControlPort     = 4281
	DefaultControlHost     = "127.0.0.1"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultIndexCacheSize  = 1024
)

// Config holds the settings of a hyperstub process.
type Config struct {
	// Schemas lists schema files or doublestar globs.
	Schemas []string `mapstructure:"schemas" validate:"required,min=1,dive,required"`

	// Host and Port address the mock listener. Port 0 picks a free port.
	Host string `mapstructure:"host" validate:"omitempty,hostname|ip"`
	Port int    `mapstructure:"port" validate:"min=0,max=65535"`

	// ControlHost and ControlPort address the control API. Port 0
	// disables it.
	ControlHost string `mapstructure:"control_host" validate:"omitempty,hostname|ip"`
	ControlPort int    `mapstructure:"control_port" validate:"min=0,max=65535"`

	// StrictReferences resolves every "$ref" at load time.
	StrictReferences bool `mapstructure:"strict_references"`

	// ValidateFactories checks factory custom properties against the
	// schema's type and enum constraints.
	ValidateFactories bool `mapstructure:"validate_factories"`

	// Identity maps definition names to the attribute that replaces the
	// "identity" suffix of their path placeholders.
	Identity map[string]string `mapstructure:"identity" validate:"dive,keys,required,endkeys,required"`

	// Metrics enables Prometheus metrics on the control API.
	Metrics bool `mapstructure:"metrics"`

	// Preload is a file of stubs and factory definitions installed at
	// startup.
	Preload string `mapstructure:"preload"`

	IndexCacheSize  int           `mapstructure:"index_cache_size" validate:"min=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// NewViper returns a viper instance with defaults and environment
// binding applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default of every key. Keys without a default
// are not read from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schemas", []string{})
	v.SetDefault("host", "")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("control_host", DefaultControlHost)
	v.SetDefault("control_port", DefaultControlPort)
	v.SetDefault("strict_references", false)
	v.SetDefault("validate_factories", false)
	v.SetDefault("identity", map[string]string{})
	v.SetDefault("metrics", false)
	v.SetDefault("preload", "")
	v.SetDefault("index_cache_size", DefaultIndexCacheSize)
	v.SetDefault("read_timeout", DefaultReadTimeout)
	v.SetDefault("write_timeout", DefaultWriteTimeout)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads file when given, decodes v into a Config and validates it.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", describe(err))
	}
	if c.ControlPort != 0 && c.ControlPort == c.Port && c.ControlHost == c.Host {
		return fmt.Errorf("invalid configuration: control_port %d collides with port", c.ControlPort)
	}
	return nil
}

// MockAddr returns the mock listener address.
func (c *Config) MockAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ControlEnabled reports whether the control API should run.
func (c *Config) ControlEnabled() bool {
	return c.ControlPort != 0
}

// ControlAddr returns the control API address.
func (c *Config) ControlAddr() string {
	return net.JoinHostPort(c.ControlHost, strconv.Itoa(c.ControlPort))
}

// Logging returns the logging configuration writing to out.
func (c *Config) Logging(out io.Writer) logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
		Output: out,
	}
}

// describe joins validator field errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		field := trimRoot(fe.Namespace())
		if fe.Param() != "" {
			parts[i] = fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param())
		} else {
			parts[i] = fmt.Sprintf("%s: failed %s", field, fe.Tag())
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
