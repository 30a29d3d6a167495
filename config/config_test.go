package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Colored || !cfg.Cache || cfg.Verbose {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.TimeoutSecs != 300 {
		t.Fatalf("got timeout %d", cfg.TimeoutSecs)
	}
	want := defaultSearchPaths()
	if len(cfg.SearchPaths) != len(want) {
		t.Fatalf("got search paths %v", cfg.SearchPaths)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".githookrc")
	contents := `
colored = false
verbose = true
only_groups = ["lint"]
timeout = 60
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Colored {
		t.Fatal("expected colored=false to override default")
	}
	if !cfg.Verbose {
		t.Fatal("expected verbose=true")
	}
	if len(cfg.OnlyGroups) != 1 || cfg.OnlyGroups[0] != "lint" {
		t.Fatalf("got only_groups %v", cfg.OnlyGroups)
	}
	if cfg.TimeoutSecs != 60 {
		t.Fatalf("got timeout %d", cfg.TimeoutSecs)
	}
	// cache wasn't set in the file, so the default should still apply.
	if !cfg.Cache {
		t.Fatal("expected cache default to survive partial override")
	}
}

func TestMergeCLIArgsSplitsAndTrimsGroupLists(t *testing.T) {
	cfg := &Config{Cache: true}
	enableCache := false
	cfg.MergeCLIArgs(&enableCache, true, "lint, security", "slow")
	if cfg.Cache {
		t.Fatal("expected cache flag to override")
	}
	if !cfg.Verbose {
		t.Fatal("expected verbose to be set")
	}
	if len(cfg.OnlyGroups) != 2 || cfg.OnlyGroups[0] != "lint" || cfg.OnlyGroups[1] != "security" {
		t.Fatalf("got only groups %v", cfg.OnlyGroups)
	}
	if len(cfg.SkipGroups) != 1 || cfg.SkipGroups[0] != "slow" {
		t.Fatalf("got skip groups %v", cfg.SkipGroups)
	}
}

func TestMergeCLIArgsLeavesCacheUntouchedWhenNil(t *testing.T) {
	cfg := &Config{Cache: true}
	cfg.MergeCLIArgs(nil, false, "", "")
	if !cfg.Cache {
		t.Fatal("expected cache to remain true when no flag given")
	}
}

func TestResolveScriptFindsFirstMatchingSearchPath(t *testing.T) {
	root := t.TempDir()
	hookDir := filepath.Join(root, ".githook")
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	scriptPath := filepath.Join(hookDir, "pre-commit.ghook")
	if err := os.WriteFile(scriptPath, []byte("let x = true\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	cfg := &Config{SearchPaths: defaultSearchPaths()}
	found, err := cfg.ResolveScript(root, "pre-commit.ghook")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if found != scriptPath {
		t.Fatalf("got %q, want %q", found, scriptPath)
	}
}

func TestResolveScriptErrorsWhenNotFound(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{SearchPaths: []string{"."}}
	if _, err := cfg.ResolveScript(root, "missing.ghook"); err == nil {
		t.Fatal("expected an error")
	}
}
