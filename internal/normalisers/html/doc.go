// Package html normalises HTML course pages. Tags, scripts and styles are
// stripped; headings are rewritten as Markdown headings so the section
// chunker can split on them.
package html
