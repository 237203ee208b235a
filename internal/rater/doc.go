// Package rater implements the scoring gateway: it submits transcripts with
// criterion context to the scoring service and normalizes the semi-structured
// text that comes back into a validated exploration result. Normalization is
// deterministic and total; unparseable responses degrade to a conservative
// unresolved fallback instead of failing the session.
package rater
