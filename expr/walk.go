package expr

// Walk visits e and its children depth-first. Returning false from fn skips
// the children of that node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Unary:
		Walk(n.X, fn)
	case Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	}
}

// Rewrite returns a copy of e where every node for which fn returns true is
// replaced by the returned expression. Untouched subtrees are shared.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	switch n := e.(type) {
	case Unary:
		x := Rewrite(n.X, fn)
		return Unary{Op: n.Op, X: x}
	case Binary:
		return Binary{Op: n.Op, X: Rewrite(n.X, fn), Y: Rewrite(n.Y, fn)}
	case Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Rewrite(a, fn)
		}
		return Call{Name: n.Name, Args: args}
	}
	return e
}

// Symbols returns the names referenced by e, in order of first appearance.
func Symbols(e Expr) []string {
	var names []string
	seen := map[string]bool{}
	Walk(e, func(n Expr) bool {
		if s, ok := n.(Symbol); ok && !seen[s.Name] {
			seen[s.Name] = true
			names = append(names, s.Name)
		}
		return true
	})
	return names
}

// UsesPC reports whether e refers to the current address.
func UsesPC(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(PC); ok {
			found = true
		}
		return !found
	})
	return found
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Int, Float, Str, Symbol, PC:
		return a == b
	case Unary:
		y, ok := b.(Unary)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.Op == y.Op && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case Call:
		y, ok := b.(Call)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
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
