// Package app composes the forge process.
//
// Open builds an Environment from explicit configuration: it opens the
// storage backend, binds post-commit emitters, swaps disabled ports for
// their unimplemented variants and constructs the use-case service. A
// Server hosts gRPC health checks on top of an Environment.
package app
