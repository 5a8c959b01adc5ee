package expr

import "reflect"

// Replace walks e top-down. When fn returns a replacement for a node the
// replacement is kept as is and its subtree is not visited. Unchanged
// subtrees are shared with the input.
func Replace(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	kids := e.children()
	if len(kids) == 0 {
		return e
	}
	changed := false
	next := make([]Expr, len(kids))
	for i, k := range kids {
		next[i] = Replace(k, fn)
		if next[i] != k {
			changed = true
		}
	}
	if !changed {
		return e
	}
	return e.withChildren(next)
}

// ReplaceParameter substitutes every occurrence of p with with.
func ReplaceParameter(e Expr, p *Parameter, with Expr) Expr {
	return Replace(e, func(n Expr) (Expr, bool) {
		if q, ok := n.(*Parameter); ok && q == p {
			return with, true
		}
		return nil, false
	})
}

// ReplaceByType substitutes every outermost node whose static type is t
// with with.
func ReplaceByType(e Expr, t reflect.Type, with Expr) Expr {
	return Replace(e, func(n Expr) (Expr, bool) {
		if n.Type() == t {
			return with, true
		}
		return nil, false
	})
}

// RewriteResult rebinds a mutation result expression to the schema root
// parameter: any part of result typed as the root context is replaced by
// root. A nil root leaves result unchanged. Rewriting twice against the same
// root yields a tree Equal to rewriting once.
func RewriteResult(result Expr, root *Parameter) Expr {
	if root == nil || result == nil {
		return result
	}
	return ReplaceByType(result, root.Type(), root)
}

// Equal reports whether a and b are structurally equal. Parameters compare
// by identity, constants by type and deep equality, calls by function
// pointer.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Parameter:
		y, ok := b.(*Parameter)
		return ok && x == y
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.typ == y.typ && reflect.DeepEqual(x.Value, y.Value)
	case *Member:
		y, ok := b.(*Member)
		return ok && x.Name == y.Name && Equal(x.Target, y.Target)
	case *Call:
		y, ok := b.(*Call)
		if !ok || x.Name != y.Name || x.Fn.Pointer() != y.Fn.Pointer() || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}
