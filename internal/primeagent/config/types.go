// Package config loads and hot-reloads the YAML configuration surface
// described in spec §6: a file with ${VAR} environment expansion,
// reloadable at runtime without losing the previous snapshot on a parse
// failure.
package config

import (
	"fmt"

	"github.com/prime-system/prime-agent/pkg/utils/cliflag"
)

// Config is the process-wide configuration snapshot. Every field maps to a
// top-level YAML section; mapstructure tags drive viper's unmarshal and
// double as the reload-diff's section names (SPEC_FULL.md §E).
type Config struct {
	Server  ServerConfig  `json:"server"  mapstructure:"server"`
	Auth    AuthConfig    `json:"auth"    mapstructure:"auth"`
	Data    DataConfig    `json:"data"    mapstructure:"data"`
	Vault   VaultConfig   `json:"vault"   mapstructure:"vault"`
	Command CommandConfig `json:"command" mapstructure:"command"`
	Capture CaptureConfig `json:"capture" mapstructure:"capture"`
	Push    PushConfig    `json:"push"    mapstructure:"push"`
}

type ServerConfig struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port"    mapstructure:"bind-port"`
}

type AuthConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Token   string `json:"token"   mapstructure:"token"`
}

// DataConfig points at the on-disk state kept outside the vault (device
// registry, agent identity, the non-authoritative audit store).
type DataConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

type VaultConfig struct {
	Path          string `json:"path"            mapstructure:"path"`
	LogsFolder    string `json:"logs-folder"     mapstructure:"logs-folder"`
	CommandsDir   string `json:"commands-dir"    mapstructure:"commands-dir"`
	MirrorEnabled bool   `json:"mirror-enabled"  mapstructure:"mirror-enabled"`
	GitUserName   string `json:"git-user-name"   mapstructure:"git-user-name"`
	GitUserEmail  string `json:"git-user-email"  mapstructure:"git-user-email"`
	PullInterval  int    `json:"pull-interval-s" mapstructure:"pull-interval-s"`
}

type CommandConfig struct {
	RetentionMinutes int `json:"retention-minutes"   mapstructure:"retention-minutes"`
	MaxEventsPerRun  int `json:"max-events-per-run"  mapstructure:"max-events-per-run"`
}

type CaptureConfig struct {
	InboxFolder string `json:"inbox-folder" mapstructure:"inbox-folder"`
}

type PushConfig struct {
	TimeoutSeconds int `json:"timeout-seconds" mapstructure:"timeout-seconds"`
}

// Default returns the configuration used when no file is supplied,
// matching the defaults named throughout spec §4.
func Default() *Config {
	return &Config{
		Server: ServerConfig{BindAddress: "0.0.0.0", BindPort: 8787},
		Data:   DataConfig{Dir: "./data"},
		Vault: VaultConfig{
			Path:         "./vault",
			LogsFolder:   "logs/commands",
			CommandsDir:  ".claude/commands",
			GitUserName:  "Prime Agent",
			GitUserEmail: "agent@prime-system.local",
			PullInterval: 300,
		},
		Command: CommandConfig{RetentionMinutes: 60, MaxEventsPerRun: 200},
		Capture: CaptureConfig{InboxFolder: "inbox"},
		Push:    PushConfig{TimeoutSeconds: 10},
	}
}

// Options is the Cobra/pflag-registered view of Config, following the
// teacher's NewOptions/AddFlags/Validate options pattern
// (internal/pkg/options/model_options.go). Only the flags an operator is
// likely to override at the command line are exposed; the rest is file-only.
type Options struct {
	ConfigFile  string
	BindAddress string
	BindPort    int
	VaultPath   string
}

func NewOptions() *Options {
	d := Default()
	return &Options{
		BindAddress: d.Server.BindAddress,
		BindPort:    d.Server.BindPort,
		VaultPath:   d.Vault.Path,
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("serving")
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Path to the YAML configuration file.")
	fs.StringVar(&o.BindAddress, "bind-address", o.BindAddress, "HTTP/WS bind address.")
	fs.IntVar(&o.BindPort, "bind-port", o.BindPort, "HTTP/WS bind port.")
	fs.StringVar(&o.VaultPath, "vault-path", o.VaultPath, "Path to the vault working tree.")
	return fss
}

func (o *Options) Validate() []error {
	var errs []error
	if o.BindPort <= 0 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid bind-port %d", o.BindPort))
	}
	return errs
}

// ApplyTo overlays command-line overrides onto a file-loaded Config.
func (o *Options) ApplyTo(c *Config) {
	if o.BindAddress != "" {
		c.Server.BindAddress = o.BindAddress
	}
	if o.BindPort != 0 {
		c.Server.BindPort = o.BindPort
	}
	if o.VaultPath != "" {
		c.Vault.Path = o.VaultPath
	}
}
