package logging

import "testing"

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	if err != nil {
		t.Fatalf("console logger: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Fatalf("debug must be enabled")
	}

	log, err = New("warn", "json")
	if err != nil {
		t.Fatalf("json logger: %v", err)
	}
	if log.Core().Enabled(0) {
		t.Fatalf("info must be disabled at warn")
	}

	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("want error for bad level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("want error for bad format")
	}
}
