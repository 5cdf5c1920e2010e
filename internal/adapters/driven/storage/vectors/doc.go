// Package vectors holds the pieces shared by the vector index backends
// that score locally: metric scoring, blob encoding, ranking, entry
// checks and per-document write locks.
package vectors
