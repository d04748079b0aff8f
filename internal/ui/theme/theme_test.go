package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/push"
)

func TestNormalizeKey(t *testing.T) {
	got := normalizeKey("  Catppuccin Mocha  ")
	if got != "catppuccin-mocha" {
		t.Fatalf("normalizeKey() = %q, want catppuccin-mocha", got)
	}
}

func TestGetBuiltInTheme(t *testing.T) {
	got, ok := Get("  catppuccin mocha ")
	if !ok {
		t.Fatal("expected built-in theme to be found")
	}
	if got.Name != "Catppuccin Mocha" {
		t.Fatalf("theme name = %q, want Catppuccin Mocha", got.Name)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != len(Catalog) {
		t.Fatalf("got %d names, want %d", len(names), len(Catalog))
	}
	if names[0] != "Catppuccin Latte" {
		t.Fatalf("names[0] = %q, want Catppuccin Latte", names[0])
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	if got := Resolve("dracula", ""); got.Name != "Dracula" {
		t.Fatalf("Resolve(dracula) returned %q, want Dracula", got.Name)
	}
	if got := Resolve("nope", t.TempDir()); got.Name != Default().Name {
		t.Fatalf("Resolve(nope) returned %q, want default", got.Name)
	}
}

func writeTheme(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func TestResolveCustomTheme(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "ocean.yaml", "name: Ocean Breeze\nextends: nord\nbase: \"#001122\"\n")
	writeTheme(t, dir, "broken.yml", "name: [\n")
	writeTheme(t, dir, "notes.txt", "ignored")

	got := Resolve("ocean breeze", dir)
	if got.Name != "Ocean Breeze" {
		t.Fatalf("Resolve() name = %q", got.Name)
	}
	if got.Base != lipgloss.Color("#001122") {
		t.Errorf("Base = %q, want override", got.Base)
	}
	if got.Green != Nord.Green {
		t.Errorf("Green = %q, want inherited %q", got.Green, Nord.Green)
	}
	if n := len(LoadCustomThemes(dir)); n != 1 {
		t.Errorf("LoadCustomThemes() found %d themes, want 1", n)
	}
}

func TestLoadCustomThemeNameFromFile(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "plain.yaml", "text: \"#ffffff\"\n")

	got, err := LoadCustomTheme(filepath.Join(dir, "plain.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "plain" || got.Text != lipgloss.Color("#ffffff") {
		t.Errorf("got %+v", got)
	}
	if got.Mauve != Default().Mauve {
		t.Error("unset colors should come from the default theme")
	}
}

func TestLoadCustomThemeUnknownBase(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "x.yaml", "extends: solarized\n")
	if _, err := LoadCustomTheme(filepath.Join(dir, "x.yaml")); err == nil {
		t.Fatal("expected error for unknown base theme")
	}
}

func TestColors(t *testing.T) {
	th := Default()
	if th.MethodColor(capture.MethodPOST) != th.Yellow {
		t.Error("POST should be yellow")
	}
	if th.MethodColor(capture.Method("TRACE")) != th.Muted {
		t.Error("unknown method should be muted")
	}
	if th.StateColor(push.StateConnected) != th.Green || th.StateColor(push.StateError) != th.Red {
		t.Error("unexpected state colors")
	}
}
