// Package cookie manages HTTP cookies with tamper-evident signing.
//
// The Manager is initialised with one or more secret keys and default
// Options. Signed values carry an issue timestamp and an HMAC-SHA256
// signature; verification accepts any of the configured secrets so keys can
// be rotated without invalidating every cookie at once. A signed value older
// than the caller's max age fails verification the same way a forged one
// does.
//
// Defaults are strict on purpose: HttpOnly and SameSite=Strict. Handlers
// relax them per cookie when they have a reason to.
package cookie
