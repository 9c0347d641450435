package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// SSHConfig identifies the single remote host every tool targets.
type SSHConfig struct {
	Host    string `mapstructure:"host"`
	User    string `mapstructure:"user"`
	KeyPath string `mapstructure:"key"`
	Port    int    `mapstructure:"port"`
}

type ServerConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is read once at startup and passed by value afterwards.
type Config struct {
	SSH    SSHConfig    `mapstructure:"ssh"`
	Server ServerConfig `mapstructure:"server"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Log    LogConfig    `mapstructure:"log"`
}

// Load reads sshmcp.yaml (if any) and the environment. An explicit path must
// exist; the default search locations are optional.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sshmcp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sshmcp")
	}

	v.SetDefault("ssh.host", "172.20.0.10")
	v.SetDefault("ssh.user", "basphere")
	v.SetDefault("ssh.key", "")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("server.name", "basphere-ssh")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("http.addr", "")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.db_path", filepath.Join(os.Getenv("HOME"), ".sshmcp", "audit.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// The SSH_* names predate the SSHMCP_ prefix and are what MCP client
	// configs already pass in.
	v.BindEnv("ssh.host", "SSH_HOST")
	v.BindEnv("ssh.user", "SSH_USER")
	v.BindEnv("ssh.key", "SSH_KEY")
	v.BindEnv("ssh.port", "SSH_PORT")

	v.SetEnvPrefix("SSHMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the ssh command line cannot do without.
func (c Config) Validate() error {
	if c.SSH.Host == "" {
		return errors.New("ssh.host must not be empty")
	}
	if c.SSH.User == "" {
		return errors.New("ssh.user must not be empty")
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port out of range: %d", c.SSH.Port)
	}
	return nil
}

// Target returns the user@host destination passed to ssh.
func (c SSHConfig) Target() string {
	return c.User + "@" + c.Host
}
