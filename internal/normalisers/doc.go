// Package normalisers provides implementations of the Normaliser interface
// for the file formats a document source can hold. Each normaliser turns a
// raw file with a given extension into a Document.
//
// The Registry selects a normaliser by file extension.
package normalisers
