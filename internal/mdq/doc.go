// Package mdq is the client for a Metadata Query service.
//
// Fetch looks up one entity by the SHA-1 digest of its identifier, accepts
// only a 200 response carrying application/xml with a well-formed entity
// descriptor, and stores the body in the signed metadata directory. Anything
// else is a *FatalFetchError: the service is serving something unexpected and
// the caller stops the run rather than keep corrupt metadata.
package mdq
