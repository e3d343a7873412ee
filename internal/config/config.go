// Package config loads the proxy's on-disk configuration with viper:
// env-var overrides layered on a config file, unmarshaled into a
// single typed struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// BackendSpec is one entry of simulation_servers: a stable backend id
// bound to a dial address.
type BackendSpec struct {
	ID      uint64
	Address string
}

// ZoneSpec is one configured (backend_id, Zone) entry. Kind is
// "rectangle" or "inverted_rectangle"; list order is lookup order
// (first match wins).
type ZoneSpec struct {
	Kind      string `mapstructure:"kind"`
	BackendID uint64 `mapstructure:"backend_id"`
	X1        int64  `mapstructure:"x1"`
	Z1        int64  `mapstructure:"z1"`
	X2        int64  `mapstructure:"x2"`
	Z2        int64  `mapstructure:"z2"`
}

// StaticDictionaryPaths are the four JSON dictionary files loaded at
// startup.
type StaticDictionaryPaths struct {
	Blocks   string `mapstructure:"blocks"`
	Items    string `mapstructure:"items"`
	Entities string `mapstructure:"entities"`
	Fluids   string `mapstructure:"fluids"`
}

// Config is the fully resolved on-disk + environment configuration:
// listener address, backends, zones, static dictionaries, keep-alive
// timings, and the optional Kubernetes discovery, PROXY protocol, TLS,
// and health-endpoint toggles.
type Config struct {
	ProxyAddress                     string            `mapstructure:"proxy_address"`
	SimulationServers                map[string]string `mapstructure:"simulation_servers"`
	ServerStatusJSON                 string            `mapstructure:"server_status"`
	ImproperVersionDisconnectMessage string            `mapstructure:"improper_version_disconnect_message"`
	PlayerDataPath                   string            `mapstructure:"player_data_path"`

	Zones            []ZoneSpec `mapstructure:"zones"`
	DefaultBackendID *uint64    `mapstructure:"default_backend_id"`

	Dictionaries StaticDictionaryPaths `mapstructure:"dictionaries"`

	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	KeepAliveTimeout  time.Duration `mapstructure:"keep_alive_timeout"`

	// UseKubernetesResolver selects the Kubernetes-backed BackendResolver
	// over the static simulation_servers map.
	UseKubernetesResolver  bool   `mapstructure:"use_kubernetes_resolver"`
	KubernetesNamespace    string `mapstructure:"kubernetes_namespace"`
	KubernetesKubeconfig   string `mapstructure:"kubernetes_kubeconfig"`

	// ProxyProtocol gates writing a PROXY protocol v2 header ahead of
	// the Minecraft handshake when dialing a backend.
	ProxyProtocol bool `mapstructure:"proxy_protocol"`

	// TLS, if CertFile (or the Kubernetes secret name) is set, terminates
	// TLS on the client-facing listener; off by default.
	TLSCertFile           string `mapstructure:"tls_cert_file"`
	TLSKeyFile            string `mapstructure:"tls_key_file"`
	TLSKubernetesSecret   string `mapstructure:"tls_kubernetes_secret"`

	// HealthAddress, if set, starts an HTTP /healthz + /readyz server.
	HealthAddress string `mapstructure:"health_address"`
}

// Load reads configPath (if it exists) via viper, applies the
// SPLINTER_-prefixed environment overlay, and unmarshals into Config.
// An unreadable or unparseable config file is fatal; the caller is
// expected to treat a non-nil error that way.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("SPLINTER")
	v.AutomaticEnv()

	v.SetDefault("proxy_address", "0.0.0.0:25565")
	v.SetDefault("improper_version_disconnect_message", "Unsupported protocol version")
	v.SetDefault("player_data_path", "./splinter-playerdata.json")
	v.SetDefault("keep_alive_interval", "10s")
	v.SetDefault("keep_alive_timeout", "30s")
	v.SetDefault("kubernetes_namespace", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if cfg.ProxyAddress == "" {
		return nil, fmt.Errorf("config: proxy_address must not be empty")
	}
	return &cfg, nil
}

// Backends flattens SimulationServers (mapping backend_id->host:port)
// into BackendSpecs, parsing each key as a backend_id.
func (c *Config) Backends() ([]BackendSpec, error) {
	out := make([]BackendSpec, 0, len(c.SimulationServers))
	for key, addr := range c.SimulationServers {
		var id uint64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("config: simulation_servers key %q is not a backend id: %w", key, err)
		}
		out = append(out, BackendSpec{ID: id, Address: addr})
	}
	return out, nil
}
