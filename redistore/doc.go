// Package redistore provides a Redis-backed refresh-token store. Each
// account maps to a single key holding a compact binary record, and the
// conditional delete used for rotation runs as a Lua compare-and-delete
// so concurrent rotations of one token resolve to exactly one winner.
package redistore
