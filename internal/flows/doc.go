// Package flows contains the authentication flow logic, decoupled from
// the engine through dependency structs of plain functions. The root
// package builds one Deps value and delegates every operation here; the
// flows never import the root package, so each one can be exercised in
// isolation with hand-rolled fakes.
package flows
