package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a dotted/bracket pointer: either a plain name
// (from `.name`) or a bracketed expression (`["literal"]`, `[0]`,
// `[ident]`) that is resolved dynamically against the active scope.
type Segment struct {
	// Name is set for `.name` segments and for bracketed string/ident
	// literals once resolved.
	Name string
	// Index is set (IsIndex true) for bracketed integer literals.
	Index   int
	IsIndex bool
	// Bracketed marks a `[...]` segment whose inner identifier must be
	// resolved against the current scope before use (see Resolve).
	Bracketed bool
	// Ident holds the raw identifier inside `[ident]` brackets, resolved
	// at lookup time via the resolver callback.
	Ident string
}

// ParsePointer splits a raw path like `a.b.2.c` or `a["b/c"].d` into
// segments. Quoted bracket contents and plain integers are resolved at
// parse time; bare identifiers inside brackets are left for the caller
// to resolve dynamically (they may reference loop/context variables).
func ParsePointer(path string) ([]Segment, error) {
	var segs []Segment
	i := 0
	n := len(path)
	for i < n {
		switch {
		case path[i] == '.':
			i++
		case path[i] == '[':
			j := i + 1
			depth := 1
			for j < n && depth > 0 {
				if path[j] == '[' {
					depth++
				} else if path[j] == ']' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("unterminated bracket in pointer %q", path)
			}
			inner := path[i+1 : j]
			seg, err := parseBracketInner(inner)
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			i = j + 1
		default:
			j := i
			for j < n && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, Segment{Name: path[i:j]})
			i = j
		}
	}
	return segs, nil
}

func parseBracketInner(inner string) (Segment, error) {
	inner = strings.TrimSpace(inner)
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		return Segment{Name: inner[1 : len(inner)-1]}, nil
	}
	if idx, err := strconv.Atoi(inner); err == nil {
		return Segment{Index: idx, IsIndex: true}, nil
	}
	if inner == "" {
		return Segment{}, fmt.Errorf("empty bracket segment")
	}
	return Segment{Bracketed: true, Ident: inner}, nil
}

// Resolver resolves a dynamic bracket identifier (e.g. `arr[i]`) against
// the active lookup scope, returning the key/index to use.
type Resolver func(ident string) (Value, bool)

// Resolve walks segs against root, using resolve to turn any bracketed
// identifier into a concrete key or index. ok is false when any segment
// fails to address a value (missing key, out-of-range index, or wrong
// container kind).
func Resolve(root Value, segs []Segment, resolve Resolver) (Value, bool) {
	cur := root
	for _, seg := range segs {
		name := seg.Name
		isIndex := seg.IsIndex
		idx := seg.Index

		if seg.Bracketed {
			v, found := resolve(seg.Ident)
			if !found {
				return Value{}, false
			}
			if s, ok := v.AsString(); ok {
				name = s
				isIndex = false
			} else if f, ok := v.AsF64(); ok {
				idx = int(f)
				isIndex = true
			} else {
				return Value{}, false
			}
		}

		switch cur.Kind() {
		case KindArray:
			arr, _ := cur.AsArray()
			i := idx
			if !isIndex {
				parsed, err := strconv.Atoi(name)
				if err != nil {
					return Value{}, false
				}
				i = parsed
			}
			if i < 0 || i >= len(arr) {
				return Value{}, false
			}
			cur = arr[i]
		case KindObject:
			obj, _ := cur.AsObject()
			key := name
			if isIndex {
				key = strconv.Itoa(idx)
			}
			v, found := obj.Get(key)
			if !found {
				return Value{}, false
			}
			cur = v
		default:
			return Value{}, false
		}
	}
	return cur, true
}
