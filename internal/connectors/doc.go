// Package connectors holds the document sources that feed ingestion.
// Each source implements the DocumentSource port; sources that can
// observe changes also implement SourceWatcher.
package connectors
