// Package fingerprint computes the SHA-1 digests used to detect changed
// metadata documents and to address entities on the metadata query service.
//
// Two digests exist and must not be confused: DigestFile hashes the raw bytes
// of a document and is only used for change detection between the incoming
// and seen snapshots, while DigestIdentifier hashes an entity identifier and
// is the lookup key (and file name suffix) for signed metadata.
package fingerprint
