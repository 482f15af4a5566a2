// Package config ingests the YAML configuration document into the
// immutable structures the core consumes. Parsing the file format
// itself is deliberately thin — only the resulting interface matters
// to the core.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Peer is one entry in the mesh peer list.
type Peer struct {
	Name      string `yaml:"name"`
	WSDLURL   string `yaml:"wsdlUrl"`
	Namespace string `yaml:"namespace"`
	Service   string `yaml:"service"`
	HTTPBase  string `yaml:"httpBase"`
}

// Config is the server's global configuration.
type Config struct {
	Port            int    `yaml:"port"`
	NumClients      int    `yaml:"numClients"`
	StopWaitSeconds int    `yaml:"stopWaitSeconds"`
	DBURL           string `yaml:"dbUrl"`
	DBUser          string `yaml:"dbUser"`
	DBPassword      string `yaml:"dbPassword"`
	WebServiceURL   string `yaml:"webServiceUrl"`
	Peers           []Peer `yaml:"peers"`
}

// StopWait returns StopWaitSeconds as a time.Duration.
func (c Config) StopWait() time.Duration {
	return time.Duration(c.StopWaitSeconds) * time.Second
}

// FederationEnabled reports whether this instance publishes an RPC
// endpoint; an empty WebServiceURL means federation is disabled.
func (c Config) FederationEnabled() bool { return c.WebServiceURL != "" }

// DSN returns the connection string to open the database with,
// folding DBUser and DBPassword into DBURL's userinfo when DBURL
// parses as a URL and credentials were supplied separately from it.
// A DBURL that is not a valid URL (e.g. already a libpq keyword/value
// string) is returned unchanged, since there is no userinfo component
// to fill in.
func (c Config) DSN() string {
	if c.DBURL == "" || (c.DBUser == "" && c.DBPassword == "") {
		return c.DBURL
	}
	u, err := url.Parse(c.DBURL)
	if err != nil || u.Host == "" {
		return c.DBURL
	}
	if c.DBUser == "" {
		u.User = url.UserPassword("", c.DBPassword)
	} else if c.DBPassword == "" {
		u.User = url.User(c.DBUser)
	} else {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	return u.String()
}

// defaults returns the field values applied before validation.
func defaults() Config {
	return Config{
		Port:            8888,
		NumClients:      50,
		StopWaitSeconds: 5,
	}
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates and decodes a YAML document into a Config, applying
// defaults for any field left unset.
func Parse(raw []byte) (Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing YAML: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("config: port must be > 0, got %d", c.Port)
	}
	if c.NumClients <= 0 {
		return fmt.Errorf("config: numClients must be > 0, got %d", c.NumClients)
	}
	if c.StopWaitSeconds < 1 {
		return fmt.Errorf("config: stopWaitSeconds must be >= 1, got %d", c.StopWaitSeconds)
	}
	seen := make(map[string]bool, len(c.Peers))
	for _, p := range c.Peers {
		if p.Name == "" {
			return fmt.Errorf("config: peer entry missing name")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate peer name %q", p.Name)
		}
		seen[p.Name] = true
		if p.HTTPBase == "" {
			return fmt.Errorf("config: peer %q missing httpBase", p.Name)
		}
	}
	return nil
}
