package executor

import (
	"strconv"
	"strings"
)

// Path addresses a response value: field response names and list indexes.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

func appendPath(path Path, elem PathElement) Path {
	out := make(Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// pathToString renders a path as "people.[1].name".
func pathToString(path Path) string {
	var b strings.Builder
	for i, elem := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		switch v := elem.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

// rootFieldPath trims path to its root response name.
func rootFieldPath(path Path) Path {
	for _, elem := range path {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

// setValueAtPath writes value into the response tree, creating missing
// objects along the way. Writes under a nulled or non-object parent are
// dropped.
func setValueAtPath(data map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	var cur any = data
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			next, ok := m[e]
			if !ok {
				next = make(map[string]any)
				m[e] = next
			}
			cur = next
		case int:
			list, ok := cur.([]any)
			if !ok || e >= len(list) {
				return
			}
			if list[e] == nil {
				list[e] = make(map[string]any)
			}
			cur = list[e]
		}
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[e] = value
		}
	case int:
		if list, ok := cur.([]any); ok && e < len(list) {
			list[e] = value
		}
	}
}
