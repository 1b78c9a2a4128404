// Package main hosts the mdqsync CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the structured
// logger, and hands off to the internal packages: syncrun for `run` and
// `watch`, the queue store for inspection and maintenance, and preflight for
// `check`. Commands print results to stdout and logs to stderr.
package main
