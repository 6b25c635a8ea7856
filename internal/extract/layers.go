package extract

import "strings"

// LayerRule maps database-name patterns to a classification layer.
// A table whose database segment contains any of the patterns as a
// substring belongs to the layer. Rules are evaluated in order and the
// first match wins.
type LayerRule struct {
	Name     string
	Label    string
	Color    string
	Patterns []string
}

// Classifier assigns layers to table references.
type Classifier struct {
	rules []LayerRule
}

// NewClassifier creates a classifier from ordered layer rules.
func NewClassifier(rules []LayerRule) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultLayers mirrors the conventional raw/staging/curated tiers.
func DefaultLayers() []LayerRule {
	return []LayerRule{
		{Name: "source", Label: "Source Tables", Color: "#FFE6CC", Patterns: []string{"src_", "raw"}},
		{Name: "staging", Label: "Staging Tables", Color: "#DAE8FC", Patterns: []string{"stg", "staging"}},
		{Name: "golden", Label: "Golden Tables", Color: "#D5E8D4", Patterns: []string{"gldn", "golden"}},
	}
}

// Classify returns the layer name for a qualified table name, or ""
// when no rule matches.
func (c *Classifier) Classify(qualified string) string {
	db := qualified
	if i := strings.IndexByte(qualified, '.'); i > 0 {
		db = qualified[:i]
	}
	db = strings.ToLower(db)
	for _, rule := range c.rules {
		for _, p := range rule.Patterns {
			if p != "" && strings.Contains(db, strings.ToLower(p)) {
				return rule.Name
			}
		}
	}
	return ""
}

// Rule returns the full rule for a layer name.
func (c *Classifier) Rule(name string) (LayerRule, bool) {
	for _, rule := range c.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return LayerRule{}, false
}

// Rules returns the ordered rules.
func (c *Classifier) Rules() []LayerRule {
	return c.rules
}

// Ref builds a classified TableRef for a qualified name.
func (c *Classifier) Ref(qualified string) TableRef {
	return TableRef{Name: qualified, Layer: c.Classify(qualified)}
}
