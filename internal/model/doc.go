// Package model holds the content model for synced recordings: the
// Recording and ActionItem entities, the raw Pocket payload they are built
// from, and the derived properties the sync engine relies on (stable id,
// processing completeness and icon selection).
//
// Nothing in this package performs I/O.
package model
