package schema

var (
	stringType  = NewType("String", TypeKindScalar, "UTF-8 character sequence.")
	intType     = NewType("Int", TypeKindScalar, "Signed 32-bit integer.")
	floatType   = NewType("Float", TypeKindScalar, "Signed double-precision floating point value.")
	booleanType = NewType("Boolean", TypeKindScalar, "`true` or `false`.")
	idType      = NewType("ID", TypeKindScalar, "Unique identifier, serialized as a string.")

	includeDirective = conditionDirective("include", "Includes the selection only when `if` is true.")
	skipDirective    = conditionDirective("skip", "Skips the selection when `if` is true.")
)

func conditionDirective(name, description string) *Directive {
	d := NewDirective(name, description).
		AddArgument(NewInputValue("if", "", NonNullType(NamedType("Boolean"))))
	d.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}
	return d
}
