// Package schema derives tables from entity metadata and creates or drops
// them. It is a helper for tests and tools, not a migration engine: tables
// are created from scratch and dropped as a whole.
package schema
