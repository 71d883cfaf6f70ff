// Package internal holds helpers shared by the engine and its flows:
// random secret generation, token encoding, and digest utilities.
package internal
