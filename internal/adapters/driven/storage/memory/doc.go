// Package memory provides in-memory implementations of the metadata and
// configuration ports. They back the "memory" storage driver and serve as
// fakes in tests. Nothing survives a restart.
package memory
