package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"darkroom/internal/testsupport"
)

func setupCLIConfig(t *testing.T) string {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(filepath.Dir(cfg.Paths.StagingDir), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := setupCLIConfig(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, configPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, err := runCLI(t, configPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestStatusOnEmptyLibrary(t *testing.T) {
	configPath := setupCLIConfig(t)

	out, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "silver")
	requireContains(t, out, "0 version(s) in the library")
}

func TestIngestStatusAndHistory(t *testing.T) {
	configPath := setupCLIConfig(t)

	photo := filepath.Join(t.TempDir(), "IMG_0001.png")
	testsupport.WritePNG(t, photo, testsupport.GradientImage(64, 48, 0))

	out, err := runCLI(t, configPath, "ingest", photo)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	requireContains(t, out, "IMG_0001.png")
	requireContains(t, out, "accepted")

	out, err = runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "1 version(s) in the library")
}

func TestPersonsRoundTrip(t *testing.T) {
	configPath := setupCLIConfig(t)

	out, err := runCLI(t, configPath, "persons", "add", "Mia", "--birthdate", "2017-03-02")
	if err != nil {
		t.Fatalf("persons add: %v", err)
	}
	requireContains(t, out, "Created person Mia")

	out, err = runCLI(t, configPath, "persons", "list")
	if err != nil {
		t.Fatalf("persons list: %v", err)
	}
	requireContains(t, out, "Mia")
	requireContains(t, out, "2017-03-02")

	// Pull the generated id back out of the listing.
	var personID string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Mia") {
			fields := strings.Fields(strings.Trim(line, "│ "))
			if len(fields) > 0 {
				personID = fields[0]
			}
		}
	}
	if personID == "" {
		t.Fatalf("could not find person id in output:\n%s", out)
	}

	if _, err := runCLI(t, configPath, "persons", "remove", personID); err != nil {
		t.Fatalf("persons remove: %v", err)
	}
	out, err = runCLI(t, configPath, "persons", "list")
	if err != nil {
		t.Fatalf("persons list: %v", err)
	}
	requireContains(t, out, "No persons registered")
}

func TestRootHelpListsCommands(t *testing.T) {
	configPath := setupCLIConfig(t)

	out, err := runCLI(t, configPath, "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, command := range []string{"ingest", "promote", "demote", "bursts", "faces", "history"} {
		requireContains(t, out, command)
	}
}
