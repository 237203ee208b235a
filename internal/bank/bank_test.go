package bank

import (
	"reflect"
	"testing"
)

const sampleBank = `{
  "categories": {
    "avoidant": {
      "threshold": 2,
      "criteria": {
        "avoidant_1": {
          "description_en": "Avoids interpersonal contact.",
          "description_de": "Vermeidet zwischenmenschlichen Kontakt.",
          "followup_question_en": "Can you tell me about that?",
          "screening_item_ids": ["scr_1"]
        },
        "avoidant_2": {
          "description_en": "Fears criticism.",
          "followup_question_en": "How does criticism affect you?"
        }
      }
    }
  },
  "screening_items": {
    "scr_2": {
      "text_en": "Second question?",
      "maps_to_criteria": ["avoidant_2"],
      "category": "avoidant"
    },
    "scr_1": {
      "text_en": "First question?",
      "text_de": "Erste Frage?",
      "maps_to_criteria": ["avoidant_1", "avoidant_2"],
      "category": "avoidant"
    }
  }
}`

func TestParseBank(t *testing.T) {
	b, err := Parse([]byte(sampleBank))
	if err != nil {
		t.Fatalf("Failed to parse bank: %v", err)
	}

	cat, ok := b.Categories["avoidant"]
	if !ok {
		t.Fatal("Expected avoidant category")
	}
	if cat.Threshold != 2 {
		t.Errorf("Expected threshold 2, got %d", cat.Threshold)
	}
	if len(cat.Criteria) != 2 {
		t.Errorf("Expected 2 criteria, got %d", len(cat.Criteria))
	}

	crit := cat.Criteria["avoidant_1"]
	if crit.Description.Get("de") != "Vermeidet zwischenmenschlichen Kontakt." {
		t.Errorf("Unexpected German description: %q", crit.Description.Get("de"))
	}
	if !reflect.DeepEqual(crit.ScreeningItemIDs, []string{"scr_1"}) {
		t.Errorf("Unexpected screening item ids: %v", crit.ScreeningItemIDs)
	}

	item := b.ScreeningItems["scr_1"]
	if !reflect.DeepEqual(item.MapsToCriteria, []string{"avoidant_1", "avoidant_2"}) {
		t.Errorf("Unexpected criteria mapping: %v", item.MapsToCriteria)
	}
	if item.Category != "avoidant" {
		t.Errorf("Unexpected category: %q", item.Category)
	}
}

func TestLocalizedFallback(t *testing.T) {
	b, err := Parse([]byte(sampleBank))
	if err != nil {
		t.Fatalf("Failed to parse bank: %v", err)
	}

	crit := b.Categories["avoidant"].Criteria["avoidant_2"]

	// No German variant: falls back to English.
	if got := crit.Description.Get("de"); got != "Fears criticism." {
		t.Errorf("Expected English fallback, got %q", got)
	}
	if got := b.ScreeningItems["scr_1"].Text.Get("de"); got != "Erste Frage?" {
		t.Errorf("Expected German text, got %q", got)
	}
}

func TestParseBankValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "threshold below one",
			json: `{"categories":{"c":{"threshold":0,"criteria":{}}},"screening_items":{}}`,
		},
		{
			name: "missing english description",
			json: `{"categories":{"c":{"threshold":1,"criteria":{"x":{"description_de":"nur deutsch"}}}},"screening_items":{}}`,
		},
		{
			name: "screening item without criteria mapping",
			json: `{"categories":{"c":{"threshold":1,"criteria":{}}},"screening_items":{"s":{"text_en":"q?","category":"c"}}}`,
		},
		{
			name: "screening item with unknown category",
			json: `{"categories":{"c":{"threshold":1,"criteria":{}}},"screening_items":{"s":{"text_en":"q?","maps_to_criteria":["x"],"category":"other"}}}`,
		},
		{
			name: "not json",
			json: `not a bank`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.json)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestScreeningItemIDsSorted(t *testing.T) {
	b, err := Parse([]byte(sampleBank))
	if err != nil {
		t.Fatalf("Failed to parse bank: %v", err)
	}

	ids := b.ScreeningItemIDs()
	if !reflect.DeepEqual(ids, []string{"scr_1", "scr_2"}) {
		t.Errorf("Expected sorted ids, got %v", ids)
	}
}

func TestFindCriterion(t *testing.T) {
	b, err := Parse([]byte(sampleBank))
	if err != nil {
		t.Fatalf("Failed to parse bank: %v", err)
	}

	if _, ok := b.FindCriterion("avoidant", "avoidant_1"); !ok {
		t.Error("Expected to find existing criterion")
	}
	if _, ok := b.FindCriterion("avoidant", "missing"); ok {
		t.Error("Expected missing criterion to not be found")
	}
	if _, ok := b.FindCriterion("missing", "avoidant_1"); ok {
		t.Error("Expected missing category to not be found")
	}
}
