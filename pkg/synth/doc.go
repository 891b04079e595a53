// Package synth matches requests to schema definitions and builds example
// objects for them.
//
// An Index maps a concrete (method, path) pair to the definition and link
// whose href template matches it, in declaration order. A Synthesizer
// turns a definition into a fresh object by resolving every property's
// example, letting overrides keyed by "$ref" pointer win.
package synth
