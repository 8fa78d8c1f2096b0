// Package mfa implements TOTP second factors and single-use recovery codes.
//
// TOTP follows RFC 6238 with HMAC-SHA1, 6 digits, 30 second steps and one step of
// tolerance either side. Secrets are 20 random bytes in unpadded base32.
//
// Recovery codes are 12 character base64url strings. Only their SHA-256 digests are
// stored and each can be consumed exactly once.
package mfa
