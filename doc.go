// Package authcore is an embeddable authentication session engine. It
// covers password login with an optional OTP second factor, JWT
// access/refresh pairs with rotation, progressive account lockout, and
// single-use password-reset tokens.
//
// The engine owns no persistence: accounts and refresh-token records
// live behind the AccountStore and RefreshTokenStore interfaces. Redis
// and PostgreSQL implementations ship in the redistore and pgstore
// packages, and any other backend can be plugged in.
//
// Construction goes through the builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithAccountStore(accounts).
//		WithRefreshTokenStore(tokens).
//		Build()
//
// All Engine methods are safe for concurrent use.
package authcore
