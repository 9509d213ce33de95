// Package storage persists prospects, run audit records and the daily
// budget window in a single SQLite file.
//
// SQLite is deliberate: the engine is single-writer by design (one run at a
// time against one automation session), and a file database keeps the whole
// deployment one binary plus one file.
package storage
