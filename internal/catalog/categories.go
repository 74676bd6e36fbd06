package catalog

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"aqualink/internal/models"
)

// CategoryDescriptor carries the derived display metadata of one category
type CategoryDescriptor struct {
	Color string `json:"color"` // Palette token for visual grouping
	Title string `json:"title"` // Human-readable title derived from the slug
}

// categoryPalette holds the 12 color tokens assigned round-robin to
// categories in lexicographic slug order
var categoryPalette = []string{
	"blue",
	"emerald",
	"amber",
	"red",
	"violet",
	"indigo",
	"teal",
	"cyan",
	"rose",
	"orange",
	"lime",
	"fuchsia",
}

// defaultCategoryColor is used for the synthetic entry when the
// catalog carries no categories at all
const defaultCategoryColor = "slate"

// CategoryTitle formats a category slug as a readable title.
// Ex: "qualidade_da_agua" -> "Qualidade Da Agua"
func CategoryTitle(slug string) string {
	s := strings.TrimSpace(strings.ReplaceAll(slug, "_", " "))
	words := strings.Fields(s)
	for i, w := range words {
		// First rune, not first byte: slugs may start with an
		// accented letter.
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// BuildCategoryIndex scans every KPI across every station and produces
// the category -> descriptor map. Colors are assigned by position in
// the lexicographically sorted slug set, modulo the palette size; the
// sort is the only determinism guarantee, so two catalogs with the same
// distinct slugs always color identically regardless of map iteration
// order. Rebuilt in full on every catalog snapshot (O(total KPIs)).
func BuildCategoryIndex(d *models.Dashboard) map[string]CategoryDescriptor {
	found := make(map[string]struct{})
	if d != nil {
		for _, station := range d.Data {
			for _, k := range station.KPIs {
				if k.Category != "" {
					found[k.Category] = struct{}{}
				}
			}
		}
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]CategoryDescriptor, len(names))
	for i, name := range names {
		index[name] = CategoryDescriptor{
			Color: categoryPalette[i%len(categoryPalette)],
			Title: CategoryTitle(name),
		}
	}

	if len(names) == 0 {
		index["default"] = CategoryDescriptor{
			Color: defaultCategoryColor,
			Title: "Seção",
		}
	}

	return index
}
