package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	configDirName  = "globalmenu"
	configFileName = "config.yaml"
	envPrefix      = "GLOBALMENU"
	socketName     = "globalmenu.sock"
)

// Keys understood in the configuration file and as GLOBALMENU_* variables.
const (
	KeyDebug          = "debug"
	KeyStrategies     = "discovery.strategies"
	KeyNamePatterns   = "discovery.name_patterns"
	KeyPathTemplate   = "discovery.path_template"
	KeyRecursionDepth = "layout.recursion_depth"
	KeyProperties     = "layout.properties"
	KeyPollInterval   = "focus.poll_interval"
	KeyControlSocket  = "control.socket"
)

// Discovery selects how a focused window is mapped to a menu service.
type Discovery struct {
	Strategies   []string
	NamePatterns []string
	PathTemplate string
}

// Layout tunes GetLayout requests.
type Layout struct {
	RecursionDepth int32
	Properties     []string
}

// Config is the resolved runtime configuration.
type Config struct {
	Debug         bool
	Discovery     Discovery
	Layout        Layout
	PollInterval  time.Duration
	ControlSocket string
	// File is the configuration file that was read, if any.
	File string
}

// Path returns the resolved configuration file path.
func Path() (string, error) {
	if custom := os.Getenv(envPrefix + "_CONFIG_PATH"); custom != "" {
		return homedir.Expand(custom)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine user config dir: %w", err)
	}
	return filepath.Join(base, configDirName, configFileName), nil
}

// DefaultSocketPath places the control socket in the user's runtime
// directory, falling back to the temp dir when none is set.
func DefaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, socketName)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyStrategies, []string{"registrar", "names"})
	v.SetDefault(KeyNamePatterns, []string{"menu", "appmenu"})
	v.SetDefault(KeyPathTemplate, "/com/canonical/menu/%d")
	v.SetDefault(KeyRecursionDepth, -1)
	v.SetDefault(KeyProperties, []string{})
	v.SetDefault(KeyPollInterval, 500*time.Millisecond)
	v.SetDefault(KeyControlSocket, DefaultSocketPath())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path, if present, layered over the
// defaults and GLOBALMENU_* environment variables. An empty path resolves
// through Path.
func Load(path string) (*Config, error) {
	if path == "" {
		resolved, err := Path()
		if err != nil {
			return nil, err
		}
		path = resolved
	} else {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		path = expanded
	}

	v := newViper()
	file := ""
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		file = path
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	return fromViper(v, file)
}

func fromViper(v *viper.Viper, file string) (*Config, error) {
	socket, err := homedir.Expand(v.GetString(KeyControlSocket))
	if err != nil {
		return nil, fmt.Errorf("expand control socket: %w", err)
	}

	cfg := &Config{
		Debug: v.GetBool(KeyDebug),
		Discovery: Discovery{
			Strategies:   v.GetStringSlice(KeyStrategies),
			NamePatterns: v.GetStringSlice(KeyNamePatterns),
			PathTemplate: v.GetString(KeyPathTemplate),
		},
		Layout: Layout{
			RecursionDepth: v.GetInt32(KeyRecursionDepth),
			Properties:     v.GetStringSlice(KeyProperties),
		},
		PollInterval:  v.GetDuration(KeyPollInterval),
		ControlSocket: socket,
		File:          file,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if len(c.Discovery.Strategies) == 0 {
		return errors.New("config: discovery.strategies is empty")
	}
	if c.Layout.RecursionDepth < -1 {
		return fmt.Errorf("config: layout.recursion_depth %d is invalid", c.Layout.RecursionDepth)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: focus.poll_interval %s must be positive", c.PollInterval)
	}
	if c.ControlSocket == "" {
		return errors.New("config: control.socket is empty")
	}
	return nil
}
