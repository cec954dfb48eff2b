// Package knowledge resolves course content: practice statements,
// exercises, tips, subject objectives and theory. The primary backend
// is a FalkorDB knowledge graph queried over the RedisGraph wire
// protocol; a static in-memory provider serves tests and offline
// demos, and an LLM-backed fallback keeps theory retrieval available
// when the graph is unreachable.
package knowledge
