package breakdown

import (
	"strings"

	"github.com/hivelab/hive/internal/cache"
)

// Category identifies a breakdown pattern. The set is closed: detection
// maps free text onto one of these variants or CategoryGeneral, and each
// variant carries its own phase template. Adding a category means adding
// a variant here and a template below, keeping dispatch auditable.
type Category string

const (
	CategoryAPI      Category = "api"
	CategoryUI       Category = "ui"
	CategoryDatabase Category = "database"
	CategoryTesting  Category = "testing"
	CategoryDocs     Category = "docs"
	CategoryRefactor Category = "refactor"
	CategoryInfra    Category = "infra"

	// CategoryGeneral is the explicit default: no pattern applies and the
	// item is chunked uniformly instead.
	CategoryGeneral Category = "general"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// phase is one step of a breakdown pattern. Weight distributes the parent
// duration across phases; ParallelSafe marks phases with no ordering
// dependency on their successors.
type phase struct {
	Label        string
	Weight       float64
	ParallelSafe bool
}

// patterns maps each category to its ordered phase template. Weights of a
// template sum to 1.0; allocation rounding is absorbed by the final phase.
var patterns = map[Category][]phase{
	CategoryAPI: {
		{Label: "Requirements analysis", Weight: 0.10},
		{Label: "Interface design", Weight: 0.15},
		{Label: "Schema definition", Weight: 0.15},
		{Label: "Implementation", Weight: 0.35},
		{Label: "Testing", Weight: 0.15},
		{Label: "Documentation", Weight: 0.10, ParallelSafe: true},
	},
	CategoryUI: {
		{Label: "Wireframe review", Weight: 0.10},
		{Label: "Component structure", Weight: 0.20},
		{Label: "Implementation", Weight: 0.40},
		{Label: "Styling and polish", Weight: 0.15},
		{Label: "Interaction testing", Weight: 0.15, ParallelSafe: true},
	},
	CategoryDatabase: {
		{Label: "Schema design", Weight: 0.25},
		{Label: "Migration scripts", Weight: 0.25},
		{Label: "Query implementation", Weight: 0.30},
		{Label: "Data validation", Weight: 0.20},
	},
	CategoryTesting: {
		{Label: "Test plan", Weight: 0.20},
		{Label: "Test implementation", Weight: 0.50},
		{Label: "Coverage review", Weight: 0.15, ParallelSafe: true},
		{Label: "Flake triage", Weight: 0.15, ParallelSafe: true},
	},
	CategoryDocs: {
		{Label: "Outline", Weight: 0.20},
		{Label: "Drafting", Weight: 0.50},
		{Label: "Review and edits", Weight: 0.30},
	},
	CategoryRefactor: {
		{Label: "Impact analysis", Weight: 0.20},
		{Label: "Incremental refactor", Weight: 0.50},
		{Label: "Regression testing", Weight: 0.30},
	},
	CategoryInfra: {
		{Label: "Environment audit", Weight: 0.15},
		{Label: "Provisioning changes", Weight: 0.35},
		{Label: "Rollout", Weight: 0.30},
		{Label: "Verification", Weight: 0.20},
	},
}

// categoryKeywords drives detection. First category whose keyword list
// matches the item text wins; detection order is fixed so results are
// deterministic.
var categoryOrder = []Category{
	CategoryAPI,
	CategoryUI,
	CategoryDatabase,
	CategoryTesting,
	CategoryDocs,
	CategoryRefactor,
	CategoryInfra,
}

var categoryKeywords = map[Category][]string{
	CategoryAPI:      {"api", "endpoint", "rest", "grpc", "webhook"},
	CategoryUI:       {"ui", "frontend", "page", "component", "screen", "dashboard"},
	CategoryDatabase: {"database", "schema", "migration", "sql", "index"},
	CategoryTesting:  {"test", "coverage", "qa", "regression"},
	CategoryDocs:     {"document", "docs", "readme", "guide", "changelog"},
	CategoryRefactor: {"refactor", "cleanup", "restructure", "simplify"},
	CategoryInfra:    {"deploy", "infra", "pipeline", "provision", "terraform", "kubernetes"},
}

// DetectCategory maps item text onto a pattern category. Unmatched text
// yields CategoryGeneral, which has no pattern and falls back to uniform
// chunking.
func DetectCategory(title, description string) Category {
	text := strings.ToLower(title + " " + description)
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return CategoryGeneral
}

// patternTemplates renders the category's phase template into cacheable
// microtask templates for the given total minutes. Returns nil when the
// category has no pattern (CategoryGeneral).
//
// Each phase receives its weighted share of the total, at least one
// minute, with rounding remainder absorbed by the final phase so the
// sum always equals the parent duration. Totals too small to give every
// phase a minute return nil and fall back to uniform chunking.
func patternTemplates(cat Category, totalMinutes int) []cache.Template {
	ph, ok := patterns[cat]
	if !ok || totalMinutes < len(ph) {
		return nil
	}

	templates := make([]cache.Template, 0, len(ph))
	remaining := totalMinutes
	for i, p := range ph {
		minutes := int(float64(totalMinutes) * p.Weight)
		if minutes < 1 {
			minutes = 1
		}
		// Leave at least a minute for each phase still to come.
		if left := len(ph) - i - 1; minutes > remaining-left {
			minutes = remaining - left
		}
		if i == len(ph)-1 {
			minutes = remaining
		}
		remaining -= minutes
		templates = append(templates, cache.Template{
			Description:      p.Label,
			EstimatedMinutes: minutes,
			ParallelSafe:     p.ParallelSafe,
		})
	}
	return templates
}
