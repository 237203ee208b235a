package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Localized holds the language-suffixed variants of a text field,
// keyed by language code ("en", "de", ...).
type Localized map[string]string

// Get returns the text for the given language, falling back to English
// when the language has no entry.
func (l Localized) Get(language string) string {
	if text, ok := l[language]; ok && text != "" {
		return text
	}
	return l["en"]
}

// Criterion is a single diagnostic item within a category. It carries the
// localized clinical description and the follow-up question asked when the
// criterion is flagged for exploration.
type Criterion struct {
	Description      Localized
	FollowupQuestion Localized
	ScreeningItemIDs []string
}

// Category groups criteria under a diagnostic threshold.
type Category struct {
	Threshold int
	Criteria  map[string]Criterion
}

// ScreeningItem is a yes/no question. A "yes" answer flags every criterion
// listed in MapsToCriteria for deeper exploration.
type ScreeningItem struct {
	Text           Localized
	MapsToCriteria []string
	Category       string
}

// Bank is the complete, immutable question bank document.
type Bank struct {
	Categories     map[string]Category
	ScreeningItems map[string]ScreeningItem
}

// rawCriterion mirrors the on-disk criterion object, where localized fields
// appear as suffixed keys (description_en, followup_question_de, ...).
type rawCriterion map[string]json.RawMessage

type rawCategory struct {
	Threshold int                     `json:"threshold"`
	Criteria  map[string]rawCriterion `json:"criteria"`
}

type rawBank struct {
	Categories     map[string]rawCategory     `json:"categories"`
	ScreeningItems map[string]json.RawMessage `json:"screening_items"`
}

// Load reads and parses the question bank document from path.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a question bank document from raw JSON.
func Parse(data []byte) (*Bank, error) {
	var raw rawBank
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	bank := &Bank{
		Categories:     make(map[string]Category, len(raw.Categories)),
		ScreeningItems: make(map[string]ScreeningItem, len(raw.ScreeningItems)),
	}

	for catID, rawCat := range raw.Categories {
		if rawCat.Threshold < 1 {
			return nil, fmt.Errorf("category %s: threshold must be at least 1, got %d", catID, rawCat.Threshold)
		}
		cat := Category{
			Threshold: rawCat.Threshold,
			Criteria:  make(map[string]Criterion, len(rawCat.Criteria)),
		}
		for critID, rawCrit := range rawCat.Criteria {
			crit, err := parseCriterion(rawCrit)
			if err != nil {
				return nil, fmt.Errorf("category %s criterion %s: %w", catID, critID, err)
			}
			cat.Criteria[critID] = crit
		}
		bank.Categories[catID] = cat
	}

	for itemID, rawItem := range raw.ScreeningItems {
		item, err := parseScreeningItem(rawItem)
		if err != nil {
			return nil, fmt.Errorf("screening item %s: %w", itemID, err)
		}
		if _, ok := bank.Categories[item.Category]; !ok {
			return nil, fmt.Errorf("screening item %s references unknown category %q", itemID, item.Category)
		}
		bank.ScreeningItems[itemID] = item
	}

	return bank, nil
}

func parseCriterion(raw rawCriterion) (Criterion, error) {
	crit := Criterion{
		Description:      collectLocalized(raw, "description_"),
		FollowupQuestion: collectLocalized(raw, "followup_question_"),
	}
	if ids, ok := raw["screening_item_ids"]; ok {
		if err := json.Unmarshal(ids, &crit.ScreeningItemIDs); err != nil {
			return Criterion{}, fmt.Errorf("invalid screening_item_ids: %w", err)
		}
	}
	if crit.Description.Get("en") == "" {
		return Criterion{}, fmt.Errorf("missing description_en")
	}
	return crit, nil
}

func parseScreeningItem(data json.RawMessage) (ScreeningItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ScreeningItem{}, err
	}

	item := ScreeningItem{Text: collectLocalized(fields, "text_")}

	if raw, ok := fields["maps_to_criteria"]; ok {
		if err := json.Unmarshal(raw, &item.MapsToCriteria); err != nil {
			return ScreeningItem{}, fmt.Errorf("invalid maps_to_criteria: %w", err)
		}
	}
	if raw, ok := fields["category"]; ok {
		if err := json.Unmarshal(raw, &item.Category); err != nil {
			return ScreeningItem{}, fmt.Errorf("invalid category: %w", err)
		}
	}

	if len(item.MapsToCriteria) == 0 {
		return ScreeningItem{}, fmt.Errorf("maps_to_criteria cannot be empty")
	}
	if item.Category == "" {
		return ScreeningItem{}, fmt.Errorf("category cannot be empty")
	}
	return item, nil
}

// collectLocalized gathers every string field whose key starts with prefix
// into a Localized map keyed by the language suffix.
func collectLocalized(fields map[string]json.RawMessage, prefix string) Localized {
	loc := make(Localized)
	for key, raw := range fields {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			continue
		}
		loc[key[len(prefix):]] = text
	}
	return loc
}

// FindCriterion resolves a criterion id within a specific category.
func (b *Bank) FindCriterion(categoryID, criterionID string) (Criterion, bool) {
	cat, ok := b.Categories[categoryID]
	if !ok {
		return Criterion{}, false
	}
	crit, ok := cat.Criteria[criterionID]
	return crit, ok
}

// ScreeningItemIDs returns all screening item ids in sorted order, which is
// the canonical iteration order for flag derivation.
func (b *Bank) ScreeningItemIDs() []string {
	ids := make([]string, 0, len(b.ScreeningItems))
	for id := range b.ScreeningItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
