// Package config loads, normalizes, and validates mdqsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment variables older
// deployments were driven by (BASEDIR, MDQ_SERVICE, RPH,
// MIN_ENTITIES_PER_RUN). The Config type is built once at startup and passed
// by pointer into the run coordinator; core packages never read the
// environment themselves.
//
// Every on-disk location the mirror uses hangs off Paths.BaseDir; use the
// accessor methods (IncomingDir, SeenDir, ...) rather than joining paths by
// hand so the layout stays in one place.
package config
