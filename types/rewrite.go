package types

// Walk visits n and its sub-nodes depth-first. Returning false from fn skips
// the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case *Terminal:
	case *Parameterized:
		Walk(t.base, fn)
		for _, a := range t.args {
			Walk(a, fn)
		}
	case *Union:
		Walk(t.left, fn)
		Walk(t.right, fn)
	case *Intersection:
		Walk(t.left, fn)
		Walk(t.right, fn)
	case *AccessType:
		Walk(t.inner, fn)
	case *Immutable:
		Walk(t.inner, fn)
	case *Annotated:
		Walk(t.annotation, fn)
		Walk(t.inner, fn)
	}
}

// Terminals returns every terminal in n in visit order
func Terminals(n Node) []*Terminal {
	var result []*Terminal
	Walk(n, func(x Node) bool {
		if t, ok := x.(*Terminal); ok {
			result = append(result, t)
		}
		return true
	})
	return result
}

// IsResolved reports whether n contains no pending references
func IsResolved(n Node) bool {
	resolved := true
	Walk(n, func(x Node) bool {
		if t, ok := x.(*Terminal); ok && t.ref.Kind() == RefPending {
			resolved = false
		}
		return resolved
	})
	return resolved
}

// ContainsAutoNarrowing reports whether n refers to this/parent/child classes
func ContainsAutoNarrowing(n Node) bool {
	found := false
	Walk(n, func(x Node) bool {
		if t, ok := x.(*Terminal); ok && t.ref.Kind().IsAutoNarrowing() {
			found = true
		}
		return !found
	})
	return found
}

// Rewrite rebuilds n bottom-up, replacing each terminal for which fn returns
// a replacement. Unchanged subtrees are shared with the input.
func Rewrite(n Node, fn func(*Terminal) (Node, bool)) Node {
	out, _ := RewriteErr(n, func(t *Terminal) (Node, bool, error) {
		r, ok := fn(t)
		return r, ok, nil
	})
	return out
}

// RewriteErr is Rewrite with a fallible replacement function.
// The first error stops the rewrite.
func RewriteErr(n Node, fn func(*Terminal) (Node, bool, error)) (Node, error) {
	switch t := n.(type) {
	case *Terminal:
		r, ok, err := fn(t)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
		return t, nil

	case *Parameterized:
		base, err := RewriteErr(t.base, fn)
		if err != nil {
			return nil, err
		}
		changed := base != t.base
		args := make([]Node, len(t.args))
		for i, a := range t.args {
			if args[i], err = RewriteErr(a, fn); err != nil {
				return nil, err
			}
			changed = changed || args[i] != a
		}
		if !changed {
			return t, nil
		}
		if _, ok := base.(*Parameterized); ok {
			// formals take no args; the replacement brings its own
			return base, nil
		}
		return NewParameterized(base, args...), nil

	case *Union:
		l, r, changed, err := rewritePair(t.left, t.right, fn)
		if err != nil || !changed {
			return t, err
		}
		return NewUnion(l, r), nil

	case *Intersection:
		l, r, changed, err := rewritePair(t.left, t.right, fn)
		if err != nil || !changed {
			return t, err
		}
		return NewIntersection(l, r), nil

	case *AccessType:
		inner, err := RewriteErr(t.inner, fn)
		if err != nil || inner == t.inner {
			return t, err
		}
		return NewAccess(t.access, inner), nil

	case *Immutable:
		inner, err := RewriteErr(t.inner, fn)
		if err != nil || inner == t.inner {
			return t, err
		}
		return NewImmutable(inner), nil

	case *Annotated:
		ann, inner, changed, err := rewritePair(t.annotation, t.inner, fn)
		if err != nil || !changed {
			return t, err
		}
		return NewAnnotated(ann, inner), nil
	}
	return n, nil
}

func rewritePair(a, b Node, fn func(*Terminal) (Node, bool, error)) (Node, Node, bool, error) {
	ra, err := RewriteErr(a, fn)
	if err != nil {
		return nil, nil, false, err
	}
	rb, err := RewriteErr(b, fn)
	if err != nil {
		return nil, nil, false, err
	}
	return ra, rb, ra != a || rb != b, nil
}

// Substitute replaces the formal type parameters of decl named in formals
// with the positionally matching args. Formals without an arg are left as is.
func Substitute(n Node, decl DeclID, formals []string, args []Node) Node {
	if len(args) == 0 || n == nil {
		return n
	}
	return Rewrite(n, func(t *Terminal) (Node, bool) {
		p, ok := t.ref.(PropertyRef)
		if !ok || p.Decl != decl {
			return nil, false
		}
		for i, name := range formals {
			if name == p.Name && i < len(args) && args[i] != nil {
				return args[i], true
			}
		}
		return nil, false
	})
}
