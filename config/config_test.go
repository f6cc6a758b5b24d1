package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadControllerValidConfig(t *testing.T) {
	content := `
transport:
  kind: serial
  device: /dev/ttyUSB0
manufacturer_id: 0x4C49
max_retries: 5
receive_timeout: 250ms
logging:
  level: debug
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "controller.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadController(path)
	if err != nil {
		t.Fatalf("LoadController() error = %v", err)
	}

	if cfg.Transport.Device != "/dev/ttyUSB0" {
		t.Errorf("Transport.Device = %q, want /dev/ttyUSB0", cfg.Transport.Device)
	}
	if cfg.ManufacturerID != 0x4C49 {
		t.Errorf("ManufacturerID = 0x%04X, want 0x4C49", cfg.ManufacturerID)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
}

func TestLoadControllerMissingFile(t *testing.T) {
	if _, err := LoadController("/nonexistent/path/controller.yaml"); err == nil {
		t.Error("LoadController() expected error for missing file, got nil")
	}
}

func TestLoadControllerInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "controller.yaml")
	if err := os.WriteFile(path, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadController(path); err == nil {
		t.Error("LoadController() expected error for invalid YAML, got nil")
	}
}

func TestLoadControllerValidationFailure(t *testing.T) {
	content := `
transport:
  kind: serial
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "controller.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadController(path); err == nil {
		t.Error("LoadController() expected error for missing transport.device, got nil")
	}
}

func TestLoadResponderRequiresDeviceID(t *testing.T) {
	content := `
transport:
  kind: simulate
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "responder.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadResponder(path); err == nil {
		t.Error("LoadResponder() expected error for missing device_id, got nil")
	}
}

func TestLoadResponderRejectsBroadcastDeviceID(t *testing.T) {
	content := `
transport:
  kind: simulate
device_id: 0xFFFFFFFF
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "responder.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadResponder(path); err == nil {
		t.Error("LoadResponder() expected error for broadcast device_id, got nil")
	}
}

func TestLoadResponderValidConfig(t *testing.T) {
	content := `
transport:
  kind: simulate
device_id: 1
device_model_id: 0x0100
supported_pids: [0x8000, 0x8001]
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "responder.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadResponder(path)
	if err != nil {
		t.Fatalf("LoadResponder() error = %v", err)
	}
	if cfg.DeviceID != 1 {
		t.Errorf("DeviceID = %d, want 1", cfg.DeviceID)
	}
	if len(cfg.SupportedPIDs) != 2 {
		t.Errorf("SupportedPIDs = %v, want 2 entries", cfg.SupportedPIDs)
	}
}
