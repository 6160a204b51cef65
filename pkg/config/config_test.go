package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ARGUMENT_TEST_NAME", "from-env")
	p := writeFile(t, "name: ${ARGUMENT_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" || s.Port != 9000 || !s.valid {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeFile(t, "name: x\nport: 0\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "name: [unterminated\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	found, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if s.Name != "default" || !s.valid {
		t.Errorf("defaults changed or not validated: %+v", s)
	}
}

func TestLoadOrDefault_OverridesDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	found, err := LoadOrDefault(writeFile(t, "name: custom\n"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if !found || s.Name != "custom" || s.Port != 8080 {
		t.Errorf("found=%v loaded=%+v", found, s)
	}
}
