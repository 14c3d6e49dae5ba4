package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/sifan077/shortlink/config"
)

func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	env := &cliEnv{loadConfig: func() (*config.Config, error) {
		return &config.Config{
			App:      config.AppConfig{BaseURL: "http://s.test/"},
			Database: config.DatabaseConfig{Driver: config.DriverPostgres},
			Slug:     config.SlugConfig{Length: 6, MaxLength: 20, MaxAttempts: 100},
		}, nil
	}}

	var out bytes.Buffer
	root := newRootCmd(env)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--sqlite", dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := runCLI(t, dbPath, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "sqlite") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = runCLI(t, dbPath, "create", "--url", "example.com/cli")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := regexp.MustCompile(`Slug:\s+([a-zA-Z0-9]{6})`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no slug in output %q", out)
	}
	slug := m[1]
	if !strings.Contains(out, "http://s.test/"+slug) || !strings.Contains(out, "https://example.com/cli") {
		t.Fatalf("unexpected create output %q", out)
	}

	out, err = runCLI(t, dbPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, slug) {
		t.Fatalf("expected %s in list output %q", slug, out)
	}

	out, err = runCLI(t, dbPath, "list", "--limit", "0")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if !strings.Contains(out, slug) {
		t.Fatalf("expected %s in full list output %q", slug, out)
	}

	out, err = runCLI(t, dbPath, "stats", slug)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Total clicks: 0") {
		t.Fatalf("unexpected stats output %q", out)
	}

	out, err = runCLI(t, dbPath, "reconcile", "--repair")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "checked 1 links, 0 drifted") {
		t.Fatalf("unexpected reconcile output %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	if _, err := runCLI(t, dbPath, "create"); err == nil {
		t.Fatal("expected missing --url to fail")
	}
	if _, err := runCLI(t, dbPath, "create", "--url", "not a url"); err == nil {
		t.Fatal("expected invalid url to fail")
	}
	if _, err := runCLI(t, dbPath, "stats", "absent"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := runCLI(t, dbPath, "stats"); err == nil {
		t.Fatal("expected missing slug argument to fail")
	}
}
