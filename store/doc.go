// Package store defines the persistence contracts consumed by the LUCA
// workflows: thread-keyed workflow checkpoints and a namespaced
// key-value store for long-term student memory.
//
// Backends live in subpackages (memory, redis, sqlite, postgres). The
// in-memory backend is always available and is the degradation target
// when an external backend is unreachable: workflow control flow never
// depends on a durable store being up.
package store
