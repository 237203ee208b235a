// Package evaluation aggregates per-criterion exploration results into
// per-category verdicts against each category's diagnostic threshold.
package evaluation
