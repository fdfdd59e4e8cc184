package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogConfig is the YAML-backed discovery-port list and per-workspace
// default catalog, mirroring the shape of the teacher's providers.yaml
// catalog (a server-side YAML document layered under the JSON Store).
type CatalogConfig struct {
	Ports      []int                      `yaml:"ports"`
	Workspaces map[string]WorkspaceConfig `yaml:"workspaces"`
}

// WorkspaceConfig holds per-workspace overrides keyed by the normalized
// workspace name CdpPool derives from a free-form path.
type WorkspaceConfig struct {
	Title              string `yaml:"title"`
	MonitorIntervalMs  int    `yaml:"monitor_interval_ms"`
	DetectorIntervalMs int    `yaml:"detector_interval_ms"`
}

// Catalog loads and queries CatalogConfig.
type Catalog struct {
	config *CatalogConfig
}

// NewCatalog loads configPath if non-empty and readable, falling back to
// defaultCatalog otherwise — the catalog file is optional.
func NewCatalog(configPath string) (*Catalog, error) {
	c := &Catalog{}
	if configPath != "" {
		if err := c.load(configPath); err == nil {
			return c, nil
		}
	}
	c.config = defaultCatalog()
	return c, nil
}

func (c *Catalog) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.config = &CatalogConfig{}
	return yaml.Unmarshal(data, c.config)
}

// Ports returns the discovery port list, falling back to the spec's
// default scan order if the catalog never set one.
func (c *Catalog) Ports() []int {
	if len(c.config.Ports) > 0 {
		return c.config.Ports
	}
	return []int{9222, 9223, 9333, 9444, 9555, 9666}
}

// WorkspaceDefaults returns the configured overrides for a normalized
// workspace name, or the zero value if none are configured.
func (c *Catalog) WorkspaceDefaults(name string) WorkspaceConfig {
	return c.config.Workspaces[name]
}

func defaultCatalog() *CatalogConfig {
	return &CatalogConfig{
		Ports:      []int{9222, 9223, 9333, 9444, 9555, 9666},
		Workspaces: map[string]WorkspaceConfig{},
	}
}

// FindCatalogFile looks for ports.yaml in standard locations, mirroring
// the teacher's FindConfigFile search order.
func FindCatalogFile() string {
	if _, err := os.Stat("config/ports.yaml"); err == nil {
		return "config/ports.yaml"
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		path := filepath.Join(home, ".gravitybridge", "ports.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if _, err := os.Stat("/etc/gravitybridge/ports.yaml"); err == nil {
		return "/etc/gravitybridge/ports.yaml"
	}

	return ""
}
