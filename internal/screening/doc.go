// Package screening derives the deduplicated, ordered set of criteria that
// need spoken follow-up from a session's yes/no screening answers.
package screening
