package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// yamlTheme is the YAML representation of a custom theme. Colors left
// empty are taken from the theme named by Extends, or the default theme.
type yamlTheme struct {
	Name    string `yaml:"name"`
	Extends string `yaml:"extends"`

	Base    string `yaml:"base"`
	Surface string `yaml:"surface"`
	Overlay string `yaml:"overlay"`

	Text    string `yaml:"text"`
	Subtext string `yaml:"subtext"`
	Muted   string `yaml:"muted"`

	Mauve    string `yaml:"mauve"`
	Red      string `yaml:"red"`
	Peach    string `yaml:"peach"`
	Yellow   string `yaml:"yellow"`
	Green    string `yaml:"green"`
	Teal     string `yaml:"teal"`
	Blue     string `yaml:"blue"`
	Lavender string `yaml:"lavender"`

	BorderFocused   string `yaml:"border_focused"`
	BorderUnfocused string `yaml:"border_unfocused"`
}

// LoadCustomTheme loads a theme from a YAML file.
func LoadCustomTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("reading theme file: %w", err)
	}

	var yt yamlTheme
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return Theme{}, fmt.Errorf("parsing theme YAML: %w", err)
	}

	t := Default()
	if yt.Extends != "" {
		base, ok := Get(yt.Extends)
		if !ok {
			return Theme{}, fmt.Errorf("theme %s extends unknown theme %q", path, yt.Extends)
		}
		t = base
	}

	t.Name = yt.Name
	if t.Name == "" {
		base := filepath.Base(path)
		t.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	override(&t.Base, yt.Base)
	override(&t.Surface, yt.Surface)
	override(&t.Overlay, yt.Overlay)
	override(&t.Text, yt.Text)
	override(&t.Subtext, yt.Subtext)
	override(&t.Muted, yt.Muted)
	override(&t.Mauve, yt.Mauve)
	override(&t.Red, yt.Red)
	override(&t.Peach, yt.Peach)
	override(&t.Yellow, yt.Yellow)
	override(&t.Green, yt.Green)
	override(&t.Teal, yt.Teal)
	override(&t.Blue, yt.Blue)
	override(&t.Lavender, yt.Lavender)
	override(&t.BorderFocused, yt.BorderFocused)
	override(&t.BorderUnfocused, yt.BorderUnfocused)
	return t, nil
}

func override(dst *lipgloss.Color, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = lipgloss.Color(v)
	}
}

// LoadCustomThemes loads all YAML themes from a directory. Files that do
// not parse are skipped.
func LoadCustomThemes(dir string) map[string]Theme {
	themes := make(map[string]Theme)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return themes
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := LoadCustomTheme(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		themes[normalizeKey(t.Name)] = t
	}
	return themes
}

// Resolve looks up a theme by name: built-in catalog, then custom themes
// in dir, then the default theme.
func Resolve(name, dir string) Theme {
	if t, ok := Get(name); ok {
		return t
	}
	if dir != "" {
		if t, ok := LoadCustomThemes(dir)[normalizeKey(name)]; ok {
			return t
		}
	}
	return Default()
}
