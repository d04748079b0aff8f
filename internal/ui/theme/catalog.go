package theme

import (
	"maps"
	"slices"
	"strings"
)

// Catalog maps normalized theme names to built-in themes.
var Catalog = map[string]Theme{}

func init() {
	register(CatppuccinMocha)
	register(CatppuccinLatte)
	register(Nord)
	register(Dracula)
	register(GruvboxDark)
	register(TokyoNight)
}

func register(t Theme) {
	Catalog[normalizeKey(t.Name)] = t
}

// Get returns a built-in theme by name.
func Get(name string) (Theme, bool) {
	t, ok := Catalog[normalizeKey(name)]
	return t, ok
}

// Names returns the built-in theme names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Catalog))
	for _, key := range slices.Sorted(maps.Keys(Catalog)) {
		names = append(names, Catalog[key].Name)
	}
	return names
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}
