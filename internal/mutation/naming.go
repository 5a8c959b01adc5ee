package mutation

import (
	"reflect"
	"strings"
	"unicode"
)

// NamingFunc turns a Go member or method name into a GraphQL wire name.
type NamingFunc func(string) string

// LowerCamel lowercases the leading run of upper-case letters, keeping the
// last one of a run that continues into a lower-case word:
// "AddPerson" -> "addPerson", "ID" -> "id", "HTTPServer" -> "httpServer".
func LowerCamel(name string) string {
	runes := []rune(name)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// Verbatim keeps names unchanged.
func Verbatim(name string) string { return name }

// memberTags holds the struct tags understood on argument members.
type memberTags struct {
	name       string
	ignore     bool
	required   bool
	allowEmpty bool
	message    string
	defaultRaw string
	hasDefault bool
	desc       string
}

// parseTags reads `graphql:"name"`/`graphql:"-"`,
// `validate:"required[,allowempty][,msg=...]"`, `default:"..."` and
// `description:"..."`. The msg option takes the rest of the tag, commas
// included.
func parseTags(tag interface{ Lookup(string) (string, bool) }) memberTags {
	var t memberTags
	if v, ok := tag.Lookup("graphql"); ok {
		if v == "-" {
			t.ignore = true
			return t
		}
		t.name = strings.TrimSpace(strings.Split(v, ",")[0])
	}
	if v, ok := tag.Lookup("validate"); ok {
		parts := strings.Split(v, ",")
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if rest, ok := strings.CutPrefix(p, "msg="); ok {
				t.message = strings.Join(append([]string{rest}, parts[i+1:]...), ",")
				break
			}
			switch p {
			case "required":
				t.required = true
			case "allowempty":
				t.allowEmpty = true
			}
		}
	}
	t.defaultRaw, t.hasDefault = tag.Lookup("default")
	t.desc, _ = tag.Lookup("description")
	return t
}

// Member reports how a struct member appears in GraphQL: its wire name and
// whether it is required. ok is false for unexported or ignored members.
func Member(sf reflect.StructField, naming NamingFunc) (name string, required bool, ok bool) {
	if !sf.IsExported() {
		return "", false, false
	}
	tags := parseTags(sf.Tag)
	if tags.ignore {
		return "", false, false
	}
	name = tags.name
	if name == "" {
		name = naming(sf.Name)
	}
	return name, tags.required, true
}
