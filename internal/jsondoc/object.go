package jsondoc

import (
	"bytes"

	"github.com/tailscale/hujson"
)

// Object is a JSON object inside a Document. Edits go straight into the
// document's syntax tree.
type Object struct {
	obj    *hujson.Object
	owner  *hujson.ObjectMember // member whose value is obj
	indent string
}

// Len returns the number of members, duplicates included.
func (o *Object) Len() int { return len(o.obj.Members) }

// Keys returns member keys in document order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.obj.Members))
	for _, m := range o.obj.Members {
		name, _ := stringValue(m.Name.Value)
		keys = append(keys, name)
	}
	return keys
}

// Get returns the string stored under key. The last occurrence wins.
// ok is false when key is absent or its value is not a string.
func (o *Object) Get(key string) (value string, ok bool) {
	m := lastMember(o.obj, key)
	if m == nil {
		return "", false
	}
	return stringValue(m.Value.Value)
}

// Set stores value under key. Existing members keep their position and
// surrounding comments; every duplicate of key is updated. An absent key
// is appended using the layout of the neighbouring members.
func (o *Object) Set(key, value string) {
	lit := stringLiteral(value)
	found := false
	for i := range o.obj.Members {
		m := &o.obj.Members[i]
		if name, ok := stringValue(m.Name.Value); ok && name == key {
			m.Value.Value = lit
			found = true
		}
	}
	if found {
		return
	}
	o.obj.Members = append(o.obj.Members, o.newMember(key, lit))
}

func (o *Object) newMember(key string, lit hujson.Literal) hujson.ObjectMember {
	m := hujson.ObjectMember{
		Name:  hujson.Value{Value: stringLiteral(key)},
		Value: hujson.Value{Value: lit},
	}

	if n := len(o.obj.Members); n > 0 {
		last := &o.obj.Members[n-1]
		m.Value.BeforeExtra = spacing(last.Value.BeforeExtra)
		switch indent, multiline := indentAfterNewline(last.Name.BeforeExtra); {
		case multiline:
			m.Name.BeforeExtra = hujson.Extra("\n" + indent)
		case n > 1:
			m.Name.BeforeExtra = spacing(last.Name.BeforeExtra)
		case len(m.Value.BeforeExtra) > 0:
			// {"a": "1"}: space after the comma like after the colon.
			m.Name.BeforeExtra = hujson.Extra(" ")
		}

		// Whitespace before the closing brace moves to the new last
		// member. A trailing comment stays with its member, newline
		// included, so a line comment never swallows the comma.
		after := last.Value.AfterExtra
		if i := bytes.LastIndexByte(after, '\n'); i >= 0 {
			m.Value.AfterExtra = clone(after[i:])
			if isSpace(after[:i]) {
				last.Value.AfterExtra = nil
			} else {
				last.Value.AfterExtra = clone(after[:i+1])
			}
		} else if isSpace(after) {
			m.Value.AfterExtra = clone(after)
			last.Value.AfterExtra = nil
		}
		return m
	}

	// Empty object: indent one level deeper than the line that owns it.
	if isSpace(o.obj.AfterExtra) {
		o.obj.AfterExtra = nil
	}
	outer, multiline := indentAfterNewline(o.owner.Name.BeforeExtra)
	if !multiline {
		m.Value.BeforeExtra = spacing(o.owner.Value.BeforeExtra)
		return m
	}
	unit := outer
	if unit == "" {
		unit = o.indent
	}
	m.Name.BeforeExtra = hujson.Extra("\n" + outer + unit)
	m.Value.BeforeExtra = hujson.Extra(" ")
	m.Value.AfterExtra = hujson.Extra("\n" + outer)
	return m
}

// indentAfterNewline returns the whitespace following the last newline
// of extra and whether extra contains a newline at all.
func indentAfterNewline(extra hujson.Extra) (string, bool) {
	i := bytes.LastIndexByte(extra, '\n')
	if i < 0 {
		return "", false
	}
	tail := extra[i+1:]
	if !isSpace(tail) {
		return "", true
	}
	return string(tail), true
}

// spacing keeps extra when it is whitespace only and drops comments.
func spacing(extra hujson.Extra) hujson.Extra {
	if isSpace(extra) {
		return clone(extra)
	}
	return hujson.Extra(" ")
}

func isSpace(b []byte) bool {
	return len(bytes.TrimLeft(b, " \t\r\n")) == 0
}

func clone(b []byte) hujson.Extra {
	if b == nil {
		return nil
	}
	return hujson.Extra(append([]byte(nil), b...))
}
