// Package database manages the SQLite connection backing the state
// history audit trail. Device state itself never touches disk; the store
// is reseeded from the catalog on every start.
package database
