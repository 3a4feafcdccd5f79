// Package app wires configuration, storage and the domain services into the
// components served by the clientbill binaries.
package app
