// Package useragent turns raw User-Agent strings into the compact
// device labels shown on the active-sessions page.
//
// Parsing is keyword based and deliberately coarse: sessions are keyed
// by the raw string, so the parser only has to produce a recognizable
// label ("Chrome 120 on macOS"), not a full fingerprint.
package useragent
