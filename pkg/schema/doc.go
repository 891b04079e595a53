// Package schema loads hyper-schema documents into an immutable, ordered
// model and resolves "$ref" pointers against them.
//
// A schema document has the shape:
//
//	{
//	  "definitions": {
//	    "app": {
//	      "properties": {
//	        "name":  { "$ref": "#/definitions/app/definitions/name" },
//	        "owner": { "properties": { "id": { "$ref": "#/definitions/account/definitions/id" } } }
//	      },
//	      "links": [
//	        { "method": "GET", "href": "/apps/{(%23%2Fdefinitions%2Fapp%2Fdefinitions%2Fidentity)}" }
//	      ]
//	    }
//	  }
//	}
//
// Documents may be JSON or YAML. Definitions, properties and links keep the
// order in which they are declared, which makes first-match lookups
// reproducible.
//
// # Properties
//
// Each property is classified once, at load time, into one of:
//
//   - KindNested: an embedded object with its own "properties"
//   - KindReference: a "$ref" pointer whose target carries an "example"
//   - KindArray: an "items" spec, synthesized as a single-element array
//   - KindInline: a literal "example" on the property itself
//
// # References
//
// Pointers are parsed once into key sequences. Resolve walks the raw
// document; Example returns a private copy of the target's "example",
// following "$ref" chains when the target only forwards to another
// definition. A pointer that cannot be resolved yields a
// *BrokenReferenceError. Load with WithStrictReferences to surface every
// broken reference at load time instead of on first use.
package schema
