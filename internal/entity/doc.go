// Package entity reads SAML entity descriptor documents and extracts the
// entityID attribute carried on the document root.
//
// Read and Parse never return Go errors: every outcome is a Result that either
// holds a Record or a Failure with a machine-readable reason, so callers can
// skip unusable documents without aborting a directory pass.
package entity
