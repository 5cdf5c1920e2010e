// Package memory provides in-memory implementations of the driven ports.
// They back tests and the "memory" index backend, which keeps nothing
// between runs.
package memory
