// Package cli implements the hyperstub command line.
//
//	hyperstub serve [schema...]       run the mock server and control API
//	hyperstub factory <name> [schema...]  print a factory-built object
//	hyperstub routes [schema...]      list the routes a schema serves
//	hyperstub validate [schema...]    check a schema for broken references
//	hyperstub version                 print build information
//
// Every command reads its settings through package config, so flags,
// HYPERSTUB_* environment variables and a --config file all apply.
package cli
