// Package pgstore provides PostgreSQL-backed account and refresh-token
// stores built on pgx. The refresh-token table carries a unique
// constraint on account_id, so the single-live-record invariant is
// enforced by the database itself; rotation's conditional delete maps to
// a DELETE guarded by the stored hash.
package pgstore
