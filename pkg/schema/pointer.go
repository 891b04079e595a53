package schema

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Pointer is a pre-parsed local "$ref" pointer such as
// "#/definitions/app/definitions/name".
type Pointer struct {
	raw    string
	tokens []string
	expr   jp.Expr
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// ParsePointer parses a local pointer. Only same-document pointers
// (starting with "#") are supported. Segments are percent-decoded and
// then unescaped per RFC 6901.
func ParsePointer(ref string) (Pointer, error) {
	if !strings.HasPrefix(ref, "#") {
		return Pointer{}, fmt.Errorf("%w: %q is not a local pointer", ErrInvalidPointer, ref)
	}

	rest := strings.TrimPrefix(ref, "#")
	p := Pointer{raw: ref, expr: jp.R()}
	if rest == "" || rest == "/" {
		return p, nil
	}
	if !strings.HasPrefix(rest, "/") {
		return Pointer{}, fmt.Errorf("%w: %q must start with \"#/\"", ErrInvalidPointer, ref)
	}

	for _, seg := range strings.Split(rest[1:], "/") {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return Pointer{}, fmt.Errorf("%w: %q: %v", ErrInvalidPointer, ref, err)
		}
		token := pointerUnescaper.Replace(decoded)
		p.tokens = append(p.tokens, token)
		p.expr = p.expr.C(token)
	}

	return p, nil
}

// MustParsePointer is like ParsePointer but panics on error.
func MustParsePointer(ref string) Pointer {
	p, err := ParsePointer(ref)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pointer as written.
func (p Pointer) String() string {
	return p.raw
}

// Tokens returns a copy of the decoded segments.
func (p Pointer) Tokens() []string {
	return append([]string(nil), p.tokens...)
}

// IsZero reports whether p was never parsed.
func (p Pointer) IsZero() bool {
	return p.raw == ""
}
