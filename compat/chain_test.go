package compat

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/link"
	"github.com/wippyai/typecore/types"
)

func TestNew_RequiresFrozenRepository(t *testing.T) {
	b := decl.NewBuilder()
	if _, err := NewWithDefaults(b.Repository()); err == nil {
		t.Error("expected error for unfrozen repository")
	}
	if _, err := NewWithDefaults(nil); err == nil {
		t.Error("expected error for nil repository")
	}
}

func TestIsAssignableTo_Reflexive(t *testing.T) {
	w := newWorld(t)

	nodes := []types.Node{
		w.base.Type(),
		w.box.Type(w.str),
		types.NewUnion(w.base.Type(), w.str),
		types.NewIntersection(w.base.Type(), w.iface.Type()),
		w.holder.Param("T"),
		w.app.Type(),
		types.NewImmutable(w.point.Type()),
		types.NewAccess(types.AccessPrivate, w.base.Type()),
		w.base.This(),
	}
	for _, n := range nodes {
		if !w.c.IsAssignableTo(n, n) {
			t.Errorf("%s should be assignable to itself", w.c.Format(n))
		}
		chains := w.c.CollectChains(n, n)
		if len(chains) != 1 || !chains[0].IsEqual() {
			t.Errorf("%s: expected a single equal chain, got %d", w.c.Format(n), len(chains))
		}
	}
}

func TestCollectChains_Transitive(t *testing.T) {
	w := newWorld(t)

	chains := w.c.CollectChains(w.base.Type(), w.derived.Type())
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain, got %d", len(chains))
	}

	b := decl.NewBuilder()
	app := b.Module("app")
	base := app.Class("Base")
	mid := app.Class("Mid").Extends(base.Type())
	leaf := app.Class("Leaf").Extends(mid.Type())
	repo, err := link.NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewWithDefaults(repo)

	chains = c.CollectChains(base.Type(), leaf.Type())
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain, got %d", len(chains))
	}
	ch := chains[0]
	if ch.Len() != 2 {
		t.Fatalf("expected chain of length 2, got %d", ch.Len())
	}
	if ch.Steps[0].Kind != decl.Extends || !types.Equal(ch.Steps[0].Type, base.Type()) {
		t.Errorf("first step = %s %s", ch.Steps[0].Kind, c.Format(ch.Steps[0].Type))
	}
	if ch.Steps[1].Kind != decl.Extends || !types.Equal(ch.Steps[1].Type, mid.Type()) {
		t.Errorf("last step = %s %s", ch.Steps[1].Kind, c.Format(ch.Steps[1].Type))
	}
	if got := ch.Format(repo); got != "extends Mid -> extends Base" {
		t.Errorf("Format = %q", got)
	}
	if !c.IsAssignableTo(leaf.Type(), base.Type()) {
		t.Error("Leaf should be assignable to Base")
	}
	if c.IsAssignableTo(base.Type(), leaf.Type()) {
		t.Error("Base should not be assignable to Leaf")
	}
}

func TestCollectChains_RankOrder(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	iface := app.Interface("I")
	iface.Method(method("m", b.Object()))
	base := app.Class("Base").Implements(iface.Type())
	derived := app.Class("Derived").Implements(iface.Type()).Extends(base.Type())
	repo, err := link.NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewWithDefaults(repo)

	chains := c.CollectChains(iface.Type(), derived.Type())
	if len(chains) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(chains))
	}
	if last := chains[0].Steps[chains[0].Len()-1]; last.Kind != decl.Extends {
		t.Errorf("extends path should come first, got %s", last.Kind)
	}
	if chains[1].Len() != 1 || chains[1].Steps[0].Kind != decl.Implements {
		t.Errorf("unexpected second chain %s", chains[1].Format(repo))
	}
}

func TestIsAssignableTo_Object(t *testing.T) {
	w := newWorld(t)

	for _, n := range []types.Node{w.base.Type(), w.box.Type(w.str), w.holder.Param("T"), w.app.Type(), w.iface.Type()} {
		if !w.c.IsAssignableTo(n, w.object) {
			t.Errorf("%s should be assignable to Object", w.c.Format(n))
		}
	}
	chains := w.c.CollectChains(w.object, w.base.Type())
	if len(chains) != 1 || chains[0].Steps[0].Kind != decl.Extends {
		t.Errorf("expected a single extends chain to Object")
	}
	if w.c.IsAssignableTo(w.object, w.base.Type()) {
		t.Error("Object should not be assignable to Base")
	}
}

func TestIsAssignableTo_Relational(t *testing.T) {
	w := newWorld(t)
	base, derived, iface := w.base.Type(), w.derived.Type(), w.iface.Type()

	tests := []struct {
		name        string
		left, right types.Node
		want        bool
	}{
		{"left union either", types.NewUnion(w.str, iface), derived, true},
		{"left union none", types.NewUnion(w.str, w.number), derived, false},
		{"right union all", base, types.NewUnion(derived, w.mid.Type()), true},
		{"right union one fails", derived, types.NewUnion(derived, base), false},
		{"union to same union", types.NewUnion(base, w.str), types.NewUnion(base, w.str), true},
		{"union to wider union", types.NewUnion(base, w.str), types.NewUnion(derived, w.str), true},
		{"left intersection both", types.NewIntersection(base, iface), derived, true},
		{"left intersection one fails", types.NewIntersection(base, iface), base, false},
		{"right intersection either", base, types.NewIntersection(iface, base), true},
		{"unrelated", base, w.unrelated.Type(), false},
	}

	for _, tc := range tests {
		if got := w.c.IsAssignableTo(tc.right, tc.left); got != tc.want {
			t.Errorf("%s: IsAssignableTo(%s, %s) = %v, want %v",
				tc.name, w.c.Format(tc.right), w.c.Format(tc.left), got, tc.want)
		}
	}
}

func TestIsAssignableTo_Qualifiers(t *testing.T) {
	w := newWorld(t)
	base, derived := w.base.Type(), w.derived.Type()

	tests := []struct {
		name        string
		left, right types.Node
		want        bool
	}{
		{"immutable needs immutable", types.NewImmutable(base), derived, false},
		{"immutable satisfied", types.NewImmutable(base), types.NewImmutable(derived), true},
		{"const is immutable", types.NewImmutable(w.object), w.point.Type(), true},
		{"immutable right to plain left", base, types.NewImmutable(derived), true},
		{"private needs private", types.NewAccess(types.AccessPrivate, base), derived, false},
		{"private satisfied", types.NewAccess(types.AccessPrivate, base), types.NewAccess(types.AccessPrivate, derived), true},
		{"private right to public left", base, types.NewAccess(types.AccessPrivate, derived), true},
		{"annotated left needs mixin", types.NewAnnotated(w.logged.Type(), base), derived, false},
		{"annotated right", w.logged.Type(), types.NewAnnotated(w.logged.Type(), derived), true},
		{"annotated right keeps inner", base, types.NewAnnotated(w.logged.Type(), derived), true},
	}

	for _, tc := range tests {
		if got := w.c.IsAssignableTo(tc.right, tc.left); got != tc.want {
			t.Errorf("%s: IsAssignableTo(%s, %s) = %v, want %v",
				tc.name, w.c.Format(tc.right), w.c.Format(tc.left), got, tc.want)
		}
	}

	chains := w.c.CollectChains(w.logged.Type(), types.NewAnnotated(w.logged.Type(), derived))
	if len(chains) != 1 || chains[0].Steps[chains[0].Len()-1].Kind != decl.Annotation {
		t.Errorf("expected an annotation chain, got %d chains", len(chains))
	}
}

func TestIsAssignableTo_Formals(t *testing.T) {
	w := newWorld(t)
	T := w.holder.Param("T")

	if !w.c.IsAssignableTo(T, w.base.Type()) {
		t.Error("formal should be assignable to its constraint")
	}
	if w.c.IsAssignableTo(T, w.derived.Type()) {
		t.Error("formal should not be assignable to a subclass of its constraint")
	}
	if w.c.IsAssignableTo(w.derived.Type(), T) {
		t.Error("nothing but the formal itself is assignable to a formal")
	}

	b := decl.NewBuilder()
	app := b.Module("app")
	base := app.Class("Base")
	pair := app.Class("Pair").Formal("T", base.Type())
	pair.Formal("U", pair.Param("T"))
	sorter := app.Class("Sorter")
	mi := sorter.NextMethod()
	A, B := sorter.Register(mi, 0, "A"), sorter.Register(mi, 1, "B")
	sorter.Method(decl.Method{
		Name:       "sort",
		TypeParams: []decl.Formal{{Name: "A"}, {Name: "B", Constraint: A}},
		Params:     []decl.Param{{Name: "a", Type: A}, {Name: "b", Type: B}},
	})
	repo, err := link.NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewWithDefaults(repo)
	pt, pu := pair.Param("T"), pair.Param("U")

	tests := []struct {
		name        string
		right, left types.Node
		want        bool
	}{
		{"formal bounded by a formal", pu, pt, true},
		{"through both constraints", pu, base.Type(), true},
		{"bound is not its bounded formal", pt, pu, false},
		{"register bounded by a register", B, A, true},
		{"register bound is not its bounded register", A, B, false},
		{"register to object", B, b.Object(), true},
	}
	for _, tc := range tests {
		if got := c.IsAssignableTo(tc.right, tc.left); got != tc.want {
			t.Errorf("%s: IsAssignableTo(%s, %s) = %v, want %v",
				tc.name, c.Format(tc.right), c.Format(tc.left), got, tc.want)
		}
	}
}

func TestIsAssignableTo_ThisType(t *testing.T) {
	w := newWorld(t)

	if !w.c.IsAssignableTo(w.base.This(), w.base.Type()) {
		t.Error("this should be assignable to its declaring class")
	}
	chains := w.c.CollectChains(w.base.Type(), w.base.This())
	if len(chains) != 1 || !chains[0].IsEqual() {
		t.Error("this of Base reaches Base by identity")
	}
}

func TestIsAssignableTo_TypeArguments(t *testing.T) {
	strict := newWorld(t)
	loose := newWorld(t, permissive)
	str, obj := strict.str, strict.object

	tests := []struct {
		name        string
		left, right types.Node
		strict      bool
		permissive  bool
	}{
		{"covariant read-only", strict.roBox.Type(obj), strict.roBox.Type(str), true, true},
		{"covariant read-write", strict.box.Type(obj), strict.box.Type(str), false, true},
		{"contravariant consumer", strict.consumer.Type(str), strict.consumer.Type(obj), true, true},
		{"wrong direction", strict.roBox.Type(str), strict.roBox.Type(obj), false, false},
		{"raw left accepts any", strict.box.Type(), strict.box.Type(str), true, true},
		{"through extends", strict.roBox.Type(obj), strict.stringBox.Type(), true, true},
		{"through extends exact", strict.roBox.Type(str), strict.stringBox.Type(), true, true},
		{"through extends unrelated", strict.roBox.Type(strict.number), strict.stringBox.Type(), false, false},
		{"substituted args", strict.roBox.Type(obj), strict.myBox.Type(str), true, true},
	}

	for _, tc := range tests {
		if got := strict.c.IsAssignableTo(tc.right, tc.left); got != tc.strict {
			t.Errorf("%s (strict) = %v, want %v", tc.name, got, tc.strict)
		}
		if got := loose.c.IsAssignableTo(tc.right, tc.left); got != tc.permissive {
			t.Errorf("%s (permissive) = %v, want %v", tc.name, got, tc.permissive)
		}
	}
}

func TestIsAssignableTo_ConditionalIncorporation(t *testing.T) {
	w := newWorld(t)
	sortable := w.sortable.Type()

	if !w.c.IsAssignableTo(w.list.Type(w.num.Type()), sortable) {
		t.Error("List<Num> should incorporate Sortable")
	}
	if w.c.IsAssignableTo(w.list.Type(w.plain.Type()), sortable) {
		t.Error("List<Plain> should not incorporate Sortable")
	}
	if w.c.IsAssignableTo(w.list.Type(), sortable) {
		t.Error("raw List defaults to Object and should not incorporate Sortable")
	}
}

func TestCollectChains_MixinCycleTerminates(t *testing.T) {
	w := newWorld(t)

	if w.c.IsAssignableTo(w.cyclic.Type(), w.unrelated.Type()) {
		t.Error("mixin should not be assignable to an unrelated class")
	}
	if n := w.c.Listener().Count(errors.KindCyclicComposition); n != 1 {
		t.Fatalf("expected 1 cycle diagnostic, got %d", n)
	}

	// the same cycle seen again is not reported twice
	w.c.CollectChains(w.number, w.cyclic.Type())
	if n := w.c.Listener().Count(errors.KindCyclicComposition); n != 1 {
		t.Errorf("cycle reported %d times", n)
	}

	chains := w.c.CollectChains(w.target.Type(), w.cyclic.Type())
	if len(chains) != 1 || chains[0].Steps[0].Kind != decl.Into {
		t.Errorf("mixin should reach its into-type in one step")
	}
}

func TestCollectChains_IntoFromStartOnly(t *testing.T) {
	b := decl.NewBuilder()
	app := b.Module("app")
	bar := app.Class("Bar")
	m := app.Mixin("M").Into(bar.Type())
	foo := app.Class("Foo").Incorporates(m.Type())
	target := app.Class("Target")
	cyc := app.Mixin("Cyc").Into(target.Type())
	target.Incorporates(cyc.Type())
	other := app.Class("Other")
	repo, err := link.NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewWithDefaults(repo)

	if !c.IsAssignableTo(m.Type(), bar.Type()) {
		t.Error("a mixin reaches its into-type")
	}
	if !c.IsAssignableTo(foo.Type(), m.Type()) {
		t.Error("Foo incorporates M")
	}
	if c.IsAssignableTo(foo.Type(), bar.Type()) {
		t.Error("incorporating M does not make Foo a Bar")
	}

	if c.IsAssignableTo(target.Type(), other.Type()) {
		t.Error("Target should not be assignable to Other")
	}
	if n := c.Listener().Count(errors.KindCyclicComposition); n != 0 {
		t.Errorf("a class incorporating a mixin into itself is well formed, got %d cycle diagnostics", n)
	}
	if !c.IsAssignableTo(target.Type(), cyc.Type()) {
		t.Error("Target incorporates Cyc")
	}

	if c.IsAssignableTo(cyc.Type(), other.Type()) {
		t.Error("Cyc should not be assignable to Other")
	}
	if n := c.Listener().Count(errors.KindCyclicComposition); n != 1 {
		t.Errorf("walking out of Cyc comes back to it, got %d cycle diagnostics", n)
	}
}

func TestCollectChains_PendingPanics(t *testing.T) {
	w := newWorld(t)
	pending := types.NewTerminal(types.PendingRef{Name: "Nope"})

	_, err := w.c.Assignable(pending, w.base.Type())
	if err == nil || !errors.IsInternal(err) {
		t.Fatalf("expected internal invariant error, got %v", err)
	}
	_, err = w.c.Chains(w.base.Type(), types.NewUnion(w.base.Type(), pending))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInternalInvariant {
		t.Fatalf("expected internal invariant error, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("CollectChains should panic on pending references")
		}
	}()
	w.c.CollectChains(pending, w.base.Type())
}

func TestIsAssignableTo_Concurrent(t *testing.T) {
	w := newWorld(t)

	type question struct {
		left, right types.Node
		want        bool
	}
	questions := []question{
		{w.base.Type(), w.derived.Type(), true},
		{w.derived.Type(), w.base.Type(), false},
		{w.drawable.Type(), w.shape.Type(), true},
		{w.roBox.Type(w.object), w.roBox.Type(w.str), true},
		{w.box.Type(w.object), w.box.Type(w.str), false},
		{w.unrelated.Type(), w.cyclic.Type(), false},
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		for _, q := range questions {
			wg.Add(1)
			go func(q question) {
				defer wg.Done()
				if got := w.c.IsAssignableTo(q.right, q.left); got != q.want {
					t.Errorf("IsAssignableTo(%s, %s) = %v", w.c.Format(q.right), w.c.Format(q.left), got)
				}
			}(q)
		}
	}
	wg.Wait()
}
