// Package jsondoc edits the "env" object of a JSON (or JSONC) document in
// place. Everything outside the members that are set is written back
// byte-for-byte: order, whitespace, comments, number spelling and string
// escapes.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
)

// EnvKey is the top-level key holding the editor environment mapping.
const EnvKey = "env"

var (
	ErrNotObject    = errors.New("jsondoc: top-level value is not an object")
	ErrNoEnv        = errors.New(`jsondoc: document has no "env" object`)
	ErrEnvNotObject = errors.New(`jsondoc: "env" is not an object`)
	ErrNonStandard  = errors.New("jsondoc: comments or trailing commas (enable lenient mode)")
)

// Option tunes Parse.
type Option func(*options)

type options struct {
	lenient bool
	indent  string
}

// Lenient accepts JSONC: comments and trailing commas. They are kept on
// write. Truncated or otherwise malformed input is still an error.
func Lenient(on bool) Option {
	return func(o *options) { o.lenient = on }
}

// IndentUnit sets the indentation used for members added to an empty
// object when the document itself gives no hint. Defaults to four spaces.
func IndentUnit(unit string) Option {
	return func(o *options) { o.indent = unit }
}

// Document is a parsed JSON document.
type Document struct {
	v      hujson.Value
	indent string
}

// Parse decodes data, keeping its exact syntax. Data after the top-level
// value is an error.
func Parse(data []byte, opts ...Option) (*Document, error) {
	o := options{indent: "    "}
	for _, opt := range opts {
		opt(&o)
	}
	v, err := hujson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("jsondoc: parse: %w", err)
	}
	if !o.lenient && !v.IsStandard() {
		return nil, ErrNonStandard
	}
	return &Document{v: v, indent: o.indent}, nil
}

// Bytes returns the document's current serialization.
func (d *Document) Bytes() []byte {
	return d.v.Pack()
}

// Env returns the document's "env" object. When "env" appears more than
// once the last occurrence wins, as with encoding/json.
func (d *Document) Env() (*Object, error) {
	root, ok := d.v.Value.(*hujson.Object)
	if !ok {
		return nil, ErrNotObject
	}
	member := lastMember(root, EnvKey)
	if member == nil {
		return nil, ErrNoEnv
	}
	obj, ok := member.Value.Value.(*hujson.Object)
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrEnvNotObject, kindOf(member.Value.Value))
	}
	return &Object{obj: obj, owner: member, indent: d.indent}, nil
}

func lastMember(obj *hujson.Object, key string) *hujson.ObjectMember {
	var found *hujson.ObjectMember
	for i := range obj.Members {
		if name, ok := stringValue(obj.Members[i].Name.Value); ok && name == key {
			found = &obj.Members[i]
		}
	}
	return found
}

// stringValue decodes v when it is a JSON string literal.
func stringValue(v hujson.ValueTrimmed) (string, bool) {
	lit, ok := v.(hujson.Literal)
	if !ok || len(lit) == 0 || lit[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(lit, &s); err != nil {
		return "", false
	}
	return s, true
}

// stringLiteral encodes s as a JSON string without HTML escaping.
func stringLiteral(s string) hujson.Literal {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	return hujson.Literal(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

func kindOf(v hujson.ValueTrimmed) string {
	switch t := v.(type) {
	case *hujson.Object:
		return "object"
	case *hujson.Array:
		return "array"
	case hujson.Literal:
		if len(t) == 0 {
			return "empty"
		}
		switch t[0] {
		case '"':
			return "string"
		case 'n':
			return "null"
		case 't', 'f':
			return "boolean"
		}
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
