// Package session defines the interview session record, its stage machine,
// and durable whole-record persistence with atomic overwrite semantics.
package session
