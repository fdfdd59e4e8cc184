package config

import (
	"encoding/json"
	"testing"
)

func TestSettingsJSON(t *testing.T) {
	jsonStr := `{"discovery": {"ports": [9222, 9333]}, "theme": "dark"}`
	var settings Settings
	if err := json.Unmarshal([]byte(jsonStr), &settings); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(settings.Discovery.Ports) != 2 || settings.Discovery.Ports[0] != 9222 {
		t.Errorf("Discovery.Ports = %v, want [9222 9333]", settings.Discovery.Ports)
	}
	if settings.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", settings.Theme)
	}
}

func TestCatalogDefaults(t *testing.T) {
	cat, err := NewCatalog("")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	ports := cat.Ports()
	if len(ports) == 0 {
		t.Fatal("expected a non-empty default port list")
	}
	if got := cat.WorkspaceDefaults("unknown-workspace"); got != (WorkspaceConfig{}) {
		t.Errorf("WorkspaceDefaults for unconfigured workspace = %+v, want zero value", got)
	}
}
