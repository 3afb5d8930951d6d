package link

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

func refOf(t *testing.T, n types.Node) types.Ref {
	t.Helper()
	ref, ok := types.RefOf(n)
	if !ok {
		t.Fatalf("no single terminal in %s", n.Key())
	}
	return ref
}

func TestScopeResolver_Order(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	shapes := app.Package("shapes")
	circle := shapes.Class("Circle")
	box := app.Class("Box").Formal("T", nil)
	inner := box.Class("Inner")
	app.Typedef("Alias", b.Object())
	box.Method(decl.Method{Name: "map", TypeParams: []decl.Formal{{Name: "U"}}})

	s := NewScopeResolver(b.Repository())
	inBox := types.Scope{Decl: box.ID(), Method: types.ClassScope}
	inInner := types.Scope{Decl: inner.ID(), Method: types.ClassScope}
	inMap := types.Scope{Decl: box.ID(), Method: 0}

	tests := []struct {
		name  string
		scope types.Scope
		want  types.Ref
	}{
		{"T", inBox, types.PropertyRef{Name: "T", Decl: box.ID()}},
		{"T", inInner, types.PropertyRef{Name: "T", Decl: box.ID()}},
		{"U", inMap, types.RegisterRef{Name: "U", Decl: box.ID(), Method: 0, Index: 0}},
		{"Inner", inBox, types.ClassRef{Decl: inner.ID()}},
		{"Box", inInner, types.ClassRef{Decl: box.ID()}},
		{"shapes", inBox, types.PackageRef{Decl: shapes.ID()}},
		{"shapes.Circle", inBox, types.ClassRef{Decl: circle.ID()}},
		{"app.shapes.Circle", inBox, types.ClassRef{Decl: circle.ID()}},
		{"app", types.Scope{Decl: types.NoDecl, Method: types.ClassScope}, types.ModuleRef{Decl: app.ID()}},
		{"Object", inInner, types.ClassRef{Decl: b.Repository().Object()}},
	}

	for _, tc := range tests {
		got, ok := s.ResolveName(types.PendingRef{Name: tc.name, Scope: tc.scope})
		if !ok {
			t.Errorf("%s: not resolved", tc.name)
			continue
		}
		if !types.SameRef(got, tc.want) {
			t.Errorf("%s: got %s, want %s", tc.name, got.Key(), tc.want.Key())
		}
	}

	if ref, ok := s.ResolveName(types.PendingRef{Name: "Alias", Scope: inBox}); !ok || ref.Kind() != types.RefTypedef {
		t.Errorf("Alias resolved to %v, %v", ref, ok)
	}
	for _, name := range []string{"U", "Missing", "shapes.Square", "T.X", "app..Box"} {
		if _, ok := s.ResolveName(types.PendingRef{Name: name, Scope: inBox}); ok {
			t.Errorf("%q should not resolve from class scope", name)
		}
	}
}

func TestScopeResolver_FormalShadowsChild(t *testing.T) {
	b := decl.NewBuilder()
	outer := b.Module("app").Class("Outer")
	outer.Class("T")
	outer.Formal("T", nil)

	s := NewScopeResolver(b.Repository())
	got, ok := s.ResolveName(types.PendingRef{Name: "T", Scope: types.Scope{Decl: outer.ID(), Method: types.ClassScope}})
	if !ok || got.Kind() != types.RefProperty {
		t.Fatalf("expected formal, got %v", got)
	}
}

func TestLink_ResolvesAllNodes(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	shape := app.Interface("Shape")
	shape.Method(decl.Method{Name: "area", Returns: []types.Node{shape.Pending("Object")}})
	box := app.Class("Box").Formal("T", nil).Implements(app.Pending("Shape"))
	m := box.NextMethod()
	box.Method(decl.Method{
		Name:       "map",
		TypeParams: []decl.Formal{{Name: "U", Constraint: box.PendingIn(m, "T")}},
		Params:     []decl.Param{{Name: "u", Type: box.PendingIn(m, "U")}},
		Returns:    []types.Node{types.NewParameterized(box.PendingIn(m, "Box"), box.PendingIn(m, "U"))},
	})
	box.Property(decl.Property{Name: "value", Type: box.Pending("T")})

	repo, err := NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !repo.Frozen() {
		t.Error("repository should be frozen after a successful link")
	}

	d, _ := repo.Declaration(box.ID())
	if ref := refOf(t, d.Contributions[0].Type); !types.SameRef(ref, types.ClassRef{Decl: shape.ID()}) {
		t.Errorf("implements = %s", ref.Key())
	}
	method := d.Methods[0]
	if ref := refOf(t, method.TypeParams[0].Constraint); ref.Kind() != types.RefProperty {
		t.Errorf("constraint = %s", ref.Key())
	}
	if ref := refOf(t, method.Params[0].Type); ref.Kind() != types.RefRegister {
		t.Errorf("param = %s", ref.Key())
	}
	if got := types.Format(method.Returns[0], repo); got != "Box<U>" {
		t.Errorf("return = %s", got)
	}
	if ref := refOf(t, d.Properties[0].Type); ref.Kind() != types.RefProperty {
		t.Errorf("property = %s", ref.Key())
	}

	repo.Each(func(d *decl.Declaration) bool {
		for _, sig := range d.Surface(types.AccessStruct) {
			for _, n := range append(sig.Params, sig.Returns...) {
				if !types.IsResolved(n) {
					t.Errorf("%s.%s still pending", d.Name, sig.Name)
				}
			}
		}
		return true
	})
}

func TestLink_CollectsAllUnresolved(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	a := app.Class("A").Extends(app.Pending("Missing"))
	a.Property(decl.Property{Name: "x", Type: a.Pending("Strng")})
	a.Property(decl.Property{Name: "y", Type: a.Pending("Strng")})

	listener := errors.NewListener()
	opts := DefaultOptions()
	opts.Listener = listener
	repo, err := New(opts).Link(context.Background(), b)
	if err == nil {
		t.Fatal("expected link error")
	}
	if repo != nil {
		t.Error("no repository should be returned on failure")
	}
	if b.Repository().Frozen() {
		t.Error("failed link must not freeze")
	}

	var list *errors.ListError
	if !stderrors.As(err, &list) {
		t.Fatalf("expected *ListError, got %T", err)
	}
	if len(list.Errors) != 2 {
		t.Fatalf("expected 2 unresolved names, got %d: %v", len(list.Errors), err)
	}
	for _, e := range list.Errors {
		if e.Kind != errors.KindUnresolvedReference {
			t.Errorf("unexpected kind %s", e.Kind)
		}
	}
	if n := listener.Count(errors.KindUnresolvedReference); n != 2 {
		t.Errorf("listener count = %d", n)
	}
}

func TestLink_BuildErrorsStopEarly(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	app.Class("X")
	app.Mixin("X")

	if _, err := NewWithDefaults().Link(context.Background(), b); err == nil {
		t.Fatal("expected build error")
	}
}

func TestLink_ArityMismatch(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	box := app.Class("Box").Formal("T", nil)
	user := app.Class("User")
	user.Property(decl.Property{
		Name: "b",
		Type: types.NewParameterized(box.Type(), b.Object(), b.Object()),
	})

	_, err := NewWithDefaults().Link(context.Background(), b)
	if err == nil {
		t.Fatal("expected arity error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindArityMismatch {
		t.Fatalf("expected arity mismatch, got %v", err)
	}
}

func TestLink_TypedefExpansion(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	list := app.Class("List").Formal("E", nil)
	app.Typedef("Objects", types.NewParameterized(list.Type(), app.Pending("Object")))
	app.Typedef("Alias", app.Pending("Objects"))
	holder := app.Class("Holder")
	holder.Property(decl.Property{Name: "items", Type: holder.Pending("Alias")})

	repo, err := NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	d, _ := repo.Declaration(holder.ID())
	if got := types.Format(d.Properties[0].Type, repo); got != "List<Object>" {
		t.Errorf("expanded = %s", got)
	}
	repo.EachTypedef(func(td *decl.Typedef) bool {
		types.Walk(td.Type, func(n types.Node) bool {
			if term, ok := n.(*types.Terminal); ok && term.Ref().Kind() == types.RefTypedef {
				t.Errorf("typedef %s not expanded", td.Name)
			}
			return true
		})
		return true
	})
}

func TestLink_TypedefCycle(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	app.Typedef("A", app.Pending("B"))
	app.Typedef("B", types.NewUnion(app.Pending("A"), b.Object()))
	user := app.Class("User")
	user.Property(decl.Property{Name: "a", Type: user.Pending("A")})
	user.Property(decl.Property{Name: "b", Type: user.Pending("B")})

	listener := errors.NewListener()
	opts := DefaultOptions()
	opts.Listener = listener
	_, err := New(opts).Link(context.Background(), b)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if n := listener.Count(errors.KindCyclicComposition); n != 1 {
		t.Errorf("cycle reported %d times, want once", n)
	}
}

func TestLink_ContributionFormats(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	plain := app.Class("Plain")
	iface := app.Interface("Iface")
	app.Class("Bad").Incorporates(plain.Type()).Implements(plain.Type()).Extends(iface.Type())
	app.Class("NotMixin").Into(plain.Type())

	listener := errors.NewListener()
	opts := DefaultOptions()
	opts.Listener = listener
	if _, err := New(opts).Link(context.Background(), b); err == nil {
		t.Fatal("expected contribution errors")
	}
	if n := listener.Count(errors.KindInvalidInput); n != 4 {
		t.Errorf("expected 4 contribution errors, got %d", n)
	}

	b2 := decl.NewBuilder()
	app2 := b2.Module("app")
	app2.Class("Bad").Incorporates(app2.Class("Plain").Type())
	opts.Listener = nil
	opts.CheckContributions = false
	if _, err := New(opts).Link(context.Background(), b2); err != nil {
		t.Errorf("unchecked link failed: %v", err)
	}
}

func TestLink_Twice(t *testing.T) {
	b := decl.NewBuilder()
	b.Module("app").Class("A")
	l := NewWithDefaults()
	if _, err := l.Link(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Link(context.Background(), b); err == nil {
		t.Error("linking a frozen repository should fail")
	}
}

func TestResolver_ConcurrentIdempotent(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	target := app.Class("Target")
	user := app.Class("User")
	r := NewResolver(b.Repository(), nil, nil)
	pending := types.PendingRef{Name: "Target", Scope: types.Scope{Decl: user.ID(), Method: types.ClassScope}}

	const n = 64
	results := make([]types.Ref, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := r.Resolve(pending)
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			results[i] = ref
		}(i)
	}
	wg.Wait()

	want := types.ClassRef{Decl: target.ID()}
	for i, ref := range results {
		if !types.SameRef(ref, want) {
			t.Fatalf("result %d = %v, want %s", i, ref, want.Key())
		}
	}

	concrete := types.ClassRef{Decl: target.ID()}
	if got, err := r.Resolve(concrete); err != nil || got != types.Ref(concrete) {
		t.Error("concrete refs must pass through unchanged")
	}
}

type fixedNames map[string]types.Ref

func (f fixedNames) ResolveName(p types.PendingRef) (types.Ref, bool) {
	ref, ok := f[p.Name]
	return ref, ok
}

func TestResolver_CustomNames(t *testing.T) {
	b := decl.NewBuilder()
	obj := b.Repository().Object()
	r := NewResolver(b.Repository(), fixedNames{"Any": types.ClassRef{Decl: obj}}, nil)

	n, err := r.ResolveNode(types.NewUnion(
		types.NewTerminal(types.PendingRef{Name: "Any"}),
		types.NewTerminal(types.PendingRef{Name: "Nope"}),
	))
	if err == nil {
		t.Fatal("expected error for Nope")
	}
	u := n.(*types.Union)
	if ref := refOf(t, u.Left()); !types.SameRef(ref, types.ClassRef{Decl: obj}) {
		t.Errorf("left = %s", ref.Key())
	}
	if ref := refOf(t, u.Right()); ref.Kind() != types.RefPending {
		t.Errorf("unresolved names must stay pending, got %s", ref.Key())
	}
}
