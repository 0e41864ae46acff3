package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is a closed enumeration. Unrecognized labels always map to
// CategoryOtro, the designated fallback member.
type Category int

const (
	CategoryOtro Category = iota
	CategoryFactura
	CategoryContrato
	CategoryRecibo
	CategoryInforme
	CategoryCarta
)

var categoryLabels = map[Category]string{
	CategoryOtro:     "Otro",
	CategoryFactura:  "Factura",
	CategoryContrato: "Contrato",
	CategoryRecibo:   "Recibo",
	CategoryInforme:  "Informe",
	CategoryCarta:    "Carta",
}

var categoryLookup = func() map[string]Category {
	m := make(map[string]Category, len(categoryLabels))
	for cat, label := range categoryLabels {
		m[strings.ToLower(label)] = cat
	}
	return m
}()

// Categories returns every member in prompt enumeration order, with
// the fallback last.
func Categories() []Category {
	return []Category{CategoryFactura, CategoryContrato, CategoryRecibo, CategoryInforme, CategoryCarta, CategoryOtro}
}

func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOtro]
}

// ParseCategory trims and matches case-insensitively against the closed
// set; anything else resolves to the fallback.
func ParseCategory(s string) Category {
	if cat, ok := categoryLookup[strings.ToLower(strings.TrimSpace(s))]; ok {
		return cat
	}
	return CategoryOtro
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Label())
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("decode category: %w", err)
	}
	*c = ParseCategory(label)
	return nil
}

// Analysis is immutable once attached to a DocumentRecord, except on
// reprocess.
type Analysis struct {
	Summary  string   `json:"summary"`
	Category Category `json:"category"`
	Tags     []string `json:"tags"`
}

func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Tags = append([]string(nil), a.Tags...)
	return &clone
}

// SearchableText flattens an analysis into the string the semantic
// ranker embeds and tokenizes.
func (a *Analysis) SearchableText() string {
	if a == nil {
		return ""
	}
	return a.Summary + " " + strings.Join(a.Tags, " ") + " " + a.Category.Label()
}

// NormalizeTags trims, lowercases and dedupes, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
