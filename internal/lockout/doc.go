// Package lockout implements the progressive account lockout policy as
// pure functions over attempt counters and timestamps. It performs no I/O;
// the engine persists whatever state the policy computes.
package lockout
