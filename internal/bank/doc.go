// Package bank loads and provides read-only access to the question bank
// document: diagnostic categories with their criteria and thresholds, and
// the screening items that map onto those criteria. Localized fields are
// resolved per session language with English fallback.
package bank
