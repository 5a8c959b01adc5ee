package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/mutagraph/internal/language"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}

// mustBuildSchema builds a schema from SDL and marks each "Type.field" in
// async as resolved through BatchResolveAsync.
func mustBuildSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	for _, key := range async {
		typeName, fieldName, _ := strings.Cut(key, ".")
		typ := sch.Types[typeName]
		require.NotNil(t, typ, key)
		f := typ.Field(fieldName)
		require.NotNil(t, f, key)
		f.SetAsync(true)
	}
	return sch
}
