package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"version":1,"server_url":"https://office.example.com","token":"file-token","default_channel":"dm:builder"}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := readConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.ServerURL != "https://office.example.com" || config.Token != "file-token" {
		t.Errorf("config = %+v", config)
	}

	t.Setenv("OFFICE_TOKEN", "env-token")
	config, err = readConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Token != "env-token" {
		t.Errorf("token = %q, env should win", config.Token)
	}
}

func TestReadMissingConfigUsesEnv(t *testing.T) {
	t.Setenv("OFFICE_SERVER", "https://env.example.com")
	config, err := readConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if config.ServerURL != "https://env.example.com" {
		t.Errorf("server = %q", config.ServerURL)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

func TestChannelFallback(t *testing.T) {
	config := Config{DefaultChannel: "dm:scout"}
	if got := config.Channel("main"); got != "main" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := config.Channel(""); got != "dm:scout" {
		t.Errorf("default channel ignored, got %q", got)
	}
	if got := (Config{}).Channel(""); got != "main" {
		t.Errorf("fallback = %q, want main", got)
	}
}

func TestValidateRequiresServer(t *testing.T) {
	if err := (Config{}).Validate(); err != ErrNoServer {
		t.Errorf("err = %v, want ErrNoServer", err)
	}
}
