// Package fixtures holds schema documents shared by package tests.
package fixtures

import _ "embed"

// Heroku is a trimmed platform API hyper-schema with account, app, build
// and setup resources.
//
//go:embed heroku.json
var Heroku []byte
