package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MedAnkiGer/scid-interview-service/internal/bank"
	"github.com/MedAnkiGer/scid-interview-service/internal/session"
)

const (
	textFileName = "report.txt"
	jsonFileName = "report.json"
	fileMode     = 0o600
)

// Writer produces a report document for a finalized session. The pipeline
// advances to COMPLETE only after Write returns without error.
type Writer interface {
	Write(s *session.Session, b *bank.Bank) error
}

// SummaryWriter renders a plain-text and a JSON summary of the session into
// its session directory.
type SummaryWriter struct {
	dir string
}

// NewSummaryWriter creates a writer targeting the given session directory.
func NewSummaryWriter(sessionDir string) *SummaryWriter {
	return &SummaryWriter{dir: sessionDir}
}

// Write renders both report files. The session record itself is never
// modified.
func (w *SummaryWriter) Write(s *session.Session, b *bank.Bank) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	text := renderText(s, b)
	if err := os.WriteFile(filepath.Join(w.dir, textFileName), []byte(text), fileMode); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}

	data, err := json.MarshalIndent(summaryDocument(s, b), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, jsonFileName), data, fileMode); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}

	return nil
}

// criterionLine is one scored criterion in the JSON report.
type criterionLine struct {
	CriterionID            string  `json:"criterion_id"`
	Description            string  `json:"description"`
	Score                  string  `json:"score"`
	Confidence             float64 `json:"confidence"`
	Unresolved             bool    `json:"unresolved"`
	ClarificationAttempted bool    `json:"clarification_attempted"`
	Rationale              string  `json:"rationale"`
}

// categoryBlock is one category verdict in the JSON report.
type categoryBlock struct {
	CategoryID    string          `json:"category_id"`
	CriteriaMet   int             `json:"criteria_met"`
	Threshold     int             `json:"threshold"`
	Diagnosis     bool            `json:"diagnosis"`
	HasUnresolved bool            `json:"has_unresolved"`
	Criteria      []criterionLine `json:"criteria"`
}

type document struct {
	SessionID   string          `json:"session_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Language    string          `json:"language"`
	GeneratedAt time.Time       `json:"generated_at"`
	Categories  []categoryBlock `json:"categories"`
}

func summaryDocument(s *session.Session, b *bank.Bank) document {
	doc := document{
		SessionID:   s.ID,
		CreatedAt:   s.CreatedAt,
		Language:    s.Language,
		GeneratedAt: time.Now().UTC(),
	}

	for _, categoryID := range sortedKeys(s.DisorderVerdicts) {
		verdict := s.DisorderVerdicts[categoryID]
		block := categoryBlock{
			CategoryID:    categoryID,
			CriteriaMet:   verdict.CriteriaMet,
			Threshold:     verdict.Threshold,
			Diagnosis:     verdict.Diagnosis,
			HasUnresolved: verdict.HasUnresolved,
		}

		category, ok := b.Categories[categoryID]
		if !ok {
			doc.Categories = append(doc.Categories, block)
			continue
		}
		for _, criterionID := range sortedKeys(category.Criteria) {
			result, explored := s.ExplorationResults[criterionID]
			if !explored {
				continue
			}
			block.Criteria = append(block.Criteria, criterionLine{
				CriterionID:            criterionID,
				Description:            category.Criteria[criterionID].Description.Get(s.Language),
				Score:                  result.Score.String(),
				Confidence:             result.Confidence,
				Unresolved:             result.Unresolved,
				ClarificationAttempted: result.ClarificationAttempted,
				Rationale:              result.Rationale,
			})
		}
		doc.Categories = append(doc.Categories, block)
	}

	return doc
}

func renderText(s *session.Session, b *bank.Bank) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Interview Report\n")
	fmt.Fprintf(&sb, "================\n\n")
	fmt.Fprintf(&sb, "Session:  %s\n", s.ID)
	fmt.Fprintf(&sb, "Created:  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Language: %s\n\n", s.Language)

	if len(s.DisorderVerdicts) == 0 {
		sb.WriteString("No categories were explored.\n")
		return sb.String()
	}

	doc := summaryDocument(s, b)
	for _, block := range doc.Categories {
		outcome := "criteria not met"
		if block.Diagnosis {
			outcome = "criteria met"
		}
		fmt.Fprintf(&sb, "%s: %s (%d/%d)\n", block.CategoryID, outcome, block.CriteriaMet, block.Threshold)
		if block.HasUnresolved {
			sb.WriteString("  note: one or more criteria remain unresolved\n")
		}
		for _, line := range block.Criteria {
			marker := ""
			if line.Unresolved {
				marker = " [unresolved]"
				if line.ClarificationAttempted {
					marker = " [unresolved after clarification]"
				}
			}
			fmt.Fprintf(&sb, "  - %s: score %s (confidence %.2f)%s\n",
				line.CriterionID, line.Score, line.Confidence, marker)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
