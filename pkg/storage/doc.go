// Package storage holds connection constructors for the external stores used by clientbill.
//
// PostgreSQL is the system of record (see the postgres subpackage). Redis is optional and
// backs the shared report cache and the readiness probe.
package storage
