// Package protocol owns the binary message contract.
//
// Ownership boundary:
// - 32-byte header layout, encode/decode and checksum
// - relay domain and source codes
// - message builder over tlv records
// - typed payload helpers (trade, pool address)
//
// Policy (which checks run for which domain) lives in internal/validation.
package protocol
