// Package report renders finalized session records into human-readable
// summary documents inside the session directory.
package report
