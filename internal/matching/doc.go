// Package matching compiles link URL templates into anchored matchers.
//
// A template such as
//
//	/apps/{(%23%2Fdefinitions%2Fapp%2Fdefinitions%2Fidentity)}/builds
//
// contains placeholders delimited by braces. Each placeholder matches one
// path segment made of word characters and hyphens; all other characters
// match literally and the whole path must match.
//
// Placeholder names are percent-decoded and stripped of braces and
// parentheses, so the example above yields the name
// "#/definitions/app/definitions/name": an "identity" suffix is replaced
// with the owning definition's identity attribute. Extracted values are
// keyed by that normalized name, which is also the "$ref" of the property
// they override.
package matching
