package router

import (
	"fmt"
	"strings"
)

// node is a single level of the routing tree. Edges carry whole path
// segments: static children are keyed by their literal segment, and each
// node holds at most one parameter child and one wildcard child.
type node[T any] struct {
	static    map[string]*node[T]
	param     *node[T]
	paramName string
	wildcard  *node[T]
	routes    map[string]*entry[T]
}

// entry is a terminal handler registered for one HTTP method.
type entry[T any] struct {
	value   T
	pattern string
}

func newNode[T any]() *node[T] {
	return &node[T]{}
}

// insert walks the pattern segments, creating nodes as needed, and attaches
// the value under the method at the terminal node. Registering the same
// (method, pattern) twice fails with ErrDuplicateRoute and leaves the
// routable state untouched.
func (n *node[T]) insert(method string, segs []segment, pattern string, value T) error {
	curr := n
	for _, seg := range segs {
		switch seg.typ {
		case segStatic:
			if curr.static == nil {
				curr.static = make(map[string]*node[T])
			}
			child, ok := curr.static[seg.key]
			if !ok {
				child = newNode[T]()
				curr.static[seg.key] = child
			}
			curr = child

		case segParam:
			if curr.param == nil {
				curr.param = newNode[T]()
				curr.paramName = seg.key
			} else if curr.paramName != seg.key {
				return fmt.Errorf("%w: conflicting parameter ':%s' (node already binds ':%s')",
					ErrInvalidPattern, seg.key, curr.paramName)
			}
			curr = curr.param

		case segWildcard:
			if curr.wildcard == nil {
				curr.wildcard = newNode[T]()
			}
			curr = curr.wildcard
		}
	}

	if curr.routes == nil {
		curr.routes = make(map[string]*entry[T])
	}
	if _, exists := curr.routes[method]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, pattern)
	}
	curr.routes[method] = &entry[T]{value: value, pattern: pattern}
	return nil
}

// terminal descends the tree for the given folded segments and returns the
// terminal node plus any bound parameters. Tie-break at every node is
// static over param over wildcard; descent is greedy and does not backtrack.
// raw carries the original-case segments so parameter values keep the
// caller's casing even when matching is case-insensitive.
func (n *node[T]) terminal(folded, raw []string) (*node[T], map[string]string) {
	curr := n
	var params map[string]string

	for i, seg := range folded {
		if child, ok := curr.static[seg]; ok {
			curr = child
			continue
		}
		if curr.param != nil && seg != "" {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[curr.paramName] = raw[i]
			curr = curr.param
			continue
		}
		if curr.wildcard != nil {
			if params == nil {
				params = make(map[string]string, 1)
			}
			params["*"] = strings.Join(raw[i:], "/")
			return curr.wildcard, params
		}
		return nil, nil
	}
	return curr, params
}

// walk visits every terminal entry in the tree.
func (n *node[T]) walk(fn func(method string, e *entry[T])) {
	for method, e := range n.routes {
		fn(method, e)
	}
	for _, child := range n.static {
		child.walk(fn)
	}
	if n.param != nil {
		n.param.walk(fn)
	}
	if n.wildcard != nil {
		n.wildcard.walk(fn)
	}
}

type segTyp uint8

const (
	segStatic segTyp = iota
	segParam
	segWildcard
)

// segment is one normalized element of a route pattern.
type segment struct {
	typ segTyp
	key string
}

// parsePattern validates and normalizes a route pattern into segments.
// A leading slash is optional; ":name" binds one path segment and a terminal
// "*" captures the remainder of the path. When fold is true static segments
// are lowercased for case-insensitive matching. In strict mode a trailing
// slash is significant and contributes a terminal empty segment; otherwise
// it is dropped during normalization.
func parsePattern(pattern string, fold, strict bool) ([]segment, string, error) {
	if pattern == "" {
		return nil, "", fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	trimmed := strings.TrimPrefix(pattern, "/")
	hadTrailing := strings.HasSuffix(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		// Root path registers on the tree root itself.
		return nil, "/", nil
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]struct{}, 2)
	for i, part := range parts {
		switch {
		case part == "":
			return nil, "", fmt.Errorf("%w: empty segment in '%s'", ErrInvalidPattern, pattern)

		case part == "*":
			if i != len(parts)-1 {
				return nil, "", fmt.Errorf("%w: wildcard must be the final segment in '%s'", ErrInvalidPattern, pattern)
			}
			segs = append(segs, segment{typ: segWildcard, key: "*"})

		case part[0] == ':':
			name := part[1:]
			if name == "" {
				return nil, "", fmt.Errorf("%w: unnamed parameter in '%s'", ErrInvalidPattern, pattern)
			}
			if strings.ContainsAny(name, ":*") {
				return nil, "", fmt.Errorf("%w: malformed parameter ':%s'", ErrInvalidPattern, name)
			}
			if _, dup := seen[name]; dup {
				return nil, "", fmt.Errorf("%w: duplicate parameter ':%s' in '%s'", ErrInvalidPattern, name, pattern)
			}
			seen[name] = struct{}{}
			segs = append(segs, segment{typ: segParam, key: name})

		default:
			if strings.ContainsAny(part, ":*") {
				return nil, "", fmt.Errorf("%w: segment '%s' mixes literals and markers", ErrInvalidPattern, part)
			}
			key := part
			if fold {
				key = strings.ToLower(key)
			}
			segs = append(segs, segment{typ: segStatic, key: key})
		}
	}

	canonical := "/" + strings.Join(parts, "/")
	if strict && hadTrailing {
		segs = append(segs, segment{typ: segStatic, key: ""})
		canonical += "/"
	}
	if fold {
		canonical = strings.ToLower(canonical)
	}
	return segs, canonical, nil
}

// splitPath breaks a request path into segments. The root path "/" yields an
// empty sequence. A trailing slash is dropped unless keepTrailing is set, in
// which case it contributes a terminal empty segment so that strict-mode
// trees can distinguish the two forms.
func splitPath(path string, keepTrailing bool) []string {
	p := strings.TrimPrefix(path, "/")
	if p == "" {
		return nil
	}
	hadTrailing := strings.HasSuffix(p, "/")
	p = strings.TrimSuffix(p, "/")
	segs := strings.Split(p, "/")
	if hadTrailing && keepTrailing {
		segs = append(segs, "")
	}
	return segs
}
