package boot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootsel")
	flag := NewFileFlag(path)

	if flag.IsBootRequestPending() {
		t.Fatal("No flag file yet, no request expected")
	}

	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("Failed to create flag file: %v", err)
	}
	if !flag.IsBootRequestPending() {
		t.Error("Expected pending request while flag file exists")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove flag file: %v", err)
	}
	if flag.IsBootRequestPending() {
		t.Error("Request must clear once the flag file is gone")
	}
}

func TestEmptyPathAndNever(t *testing.T) {
	if NewFileFlag("").IsBootRequestPending() {
		t.Error("Empty flag path must never request a reboot")
	}

	var r Requester = Never{}
	if r.IsBootRequestPending() {
		t.Error("Never must never request a reboot")
	}
}
