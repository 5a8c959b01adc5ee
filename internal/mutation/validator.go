package mutation

import (
	"reflect"
	"sync"
)

// Validator collects validation errors for one invocation. Mutation
// functions may take a *Validator parameter and add errors of their own;
// any error present after the call nulls the result.
//
// Errors are deduplicated by message text, so two members sharing a custom
// message report once.
type Validator struct {
	naming NamingFunc

	mu   sync.Mutex
	errs ValidationErrors
	seen map[string]struct{}
}

// NewValidator returns an empty Validator. naming produces the wire names
// used in generated messages; nil means LowerCamel.
func NewValidator(naming NamingFunc) *Validator {
	if naming == nil {
		naming = LowerCamel
	}
	return &Validator{naming: naming, seen: map[string]struct{}{}}
}

// AddError records an error unless one with the same message exists.
func (v *Validator) AddError(field, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, dup := v.seen[message]; dup {
		return
	}
	v.seen[message] = struct{}{}
	v.errs = append(v.errs, ValidationError{Field: field, Message: message})
}

// Errors returns a copy of the errors recorded so far.
func (v *Validator) Errors() ValidationErrors {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.errs) == 0 {
		return nil
	}
	return append(ValidationErrors(nil), v.errs...)
}

// HasErrors reports whether any error was recorded.
func (v *Validator) HasErrors() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.errs) > 0
}

// Validate checks the `validate:"required"` members of instance, a struct
// or pointer to struct, and returns all errors recorded so far. It never
// modifies instance.
func (v *Validator) Validate(instance any) ValidationErrors {
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return v.Errors()
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return v.Errors()
	}
	for _, sf := range reflect.VisibleFields(rv.Type()) {
		if !sf.IsExported() || sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		tags := parseTags(sf.Tag)
		if tags.ignore || !tags.required {
			continue
		}
		member, err := rv.FieldByIndexErr(sf.Index)
		if err != nil || !missing(member, tags.allowEmpty) {
			continue
		}
		name := tags.name
		if name == "" {
			name = v.naming(sf.Name)
		}
		msg := tags.message
		if msg == "" {
			msg = name + " is required"
		}
		v.AddError(name, msg)
	}
	return v.Errors()
}

// missing reports a null value, or an empty string unless allowEmpty.
func missing(v reflect.Value, allowEmpty bool) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}
		return missing(v.Elem(), allowEmpty)
	case reflect.Slice, reflect.Map:
		return v.IsNil()
	case reflect.String:
		return !allowEmpty && v.Len() == 0
	}
	return false
}
