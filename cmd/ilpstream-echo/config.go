package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config describes the two STREAM endpoints the demo wires together: a
// client and a server sharing one pre-shared secret, the way a real
// deployment would derive the secret from an upstream STREAM setup
// protocol.
type Config struct {
	SharedSecret string `toml:"shared_secret"`
	Client       EndpointConfig
	Server       EndpointConfig
}

// EndpointConfig names one side of the connection for logging and for
// the handshake's ConnectionNewAddress frame.
type EndpointConfig struct {
	Account string `toml:"account"`
}

// LoadConfig decodes a Config from a TOML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if cfg.SharedSecret == "" {
		return nil, fmt.Errorf("config %s: shared_secret is required", path)
	}
	if cfg.Client.Account == "" {
		return nil, fmt.Errorf("config %s: client.account is required", path)
	}
	if cfg.Server.Account == "" {
		return nil, fmt.Errorf("config %s: server.account is required", path)
	}
	return &cfg, nil
}

// DefaultConfig returns a Config usable without a config file on disk,
// for `ilpstream-echo` invoked with no arguments.
func DefaultConfig() *Config {
	return &Config{
		SharedSecret: "this-is-a-demo-shared-secret-32b",
		Client:       EndpointConfig{Account: "example.alice"},
		Server:       EndpointConfig{Account: "example.bob"},
	}
}
