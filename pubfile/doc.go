// Package pubfile decodes, verifies and queries publications files.
//
// A publications file is a signed binary table that binds publication
// times to the imprints committed at those times, and lists the hashes of
// the public keys used to sign timestamps. The file is laid out as a
// 36-byte big-endian header followed by four regions: publication cells,
// key-hash cells, a references block, and a detached PKCS#7 signature over
// everything before it.
//
// Decode performs structural validation only. Verify additionally checks
// the signature against a TrustAnchor and that the signer certificate was
// issued to the expected email address.
package pubfile
