// Package jwt mints and verifies the signed access/refresh token pairs
// issued by the engine. Access and refresh tokens are signed with
// independent HS256 secrets so that compromise of one key never forges
// tokens of the other kind.
package jwt
