// Package password derives salted password digests and random one-time
// tokens for auth slugs and password-reset links.
//
// Digests are hex-encoded SHA-512 over the UTF-8 password bytes followed by
// the salt bytes. The format is stable: existing rows carry digests produced
// by earlier deployments, so it must never change silently.
package password
