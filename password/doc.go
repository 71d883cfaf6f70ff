// Package password provides the Argon2id one-way hasher used for
// passwords, OTP codes, and password-reset tokens. Hashes are encoded in
// PHC string format so parameters travel with the hash and can be
// upgraded over time.
package password
