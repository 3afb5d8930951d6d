package compat

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

func TestResolveAutoNarrowing(t *testing.T) {
	w := newWorld(t)

	tests := []struct {
		name string
		n    types.Node
		ctx  types.DeclID
		want types.Node
	}{
		{"this in declaring class", w.base.This(), w.base.ID(), w.base.Type()},
		{"this in subclass", w.base.This(), w.derived.ID(), w.derived.Type()},
		{"this of generic class", w.gbase.This(), w.gbase.ID(), w.gbase.Type(w.gbase.Param("T"))},
		{"parent", w.inner.Parent(1), w.inner.ID(), w.outer.Type()},
		{"grandparent", w.inner.Parent(2), w.inner.ID(), w.app.Type()},
		{"own child", w.base.Child("Node"), w.base.ID(), w.node.Type()},
		{"inherited child", w.base.Child("Node"), w.derived.ID(), w.node.Type()},
		{
			"nested",
			types.NewUnion(w.base.This(), w.box.Type(w.base.This())),
			w.derived.ID(),
			types.NewUnion(w.derived.Type(), w.box.Type(w.derived.Type())),
		},
		{"nothing to narrow", w.box.Type(w.str), w.base.ID(), w.box.Type(w.str)},
	}
	for _, tc := range tests {
		got, err := w.c.ResolveAutoNarrowing(tc.n, tc.ctx)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !types.Equal(got, tc.want) {
			t.Errorf("%s: got %s, want %s", tc.name, w.c.Format(got), w.c.Format(tc.want))
		}
	}

	got, _ := w.c.ResolveAutoNarrowing(w.gbase.This(), w.gbase.ID())
	if s := w.c.Format(got); s != "GBase<T>" {
		t.Errorf("Format = %q", s)
	}
}

func TestResolveAutoNarrowing_Illegal(t *testing.T) {
	w := newWorld(t)

	tests := []struct {
		name string
		n    types.Node
		ctx  types.DeclID
	}{
		{"this outside hierarchy", w.base.This(), w.unrelated.ID()},
		{"parent too deep", w.inner.Parent(5), w.inner.ID()},
		{"missing child", w.base.Child("Missing"), w.derived.ID()},
	}
	for _, tc := range tests {
		_, err := w.c.ResolveAutoNarrowing(tc.n, tc.ctx)
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Kind != errors.KindIllegalNarrowing {
			t.Errorf("%s: expected illegal narrowing, got %v", tc.name, err)
		}
	}
	if n := w.c.Listener().Count(errors.KindIllegalNarrowing); n != len(tests) {
		t.Errorf("expected %d diagnostics, got %d", len(tests), n)
	}

	// repeated failures are reported once
	_, _ = w.c.ResolveAutoNarrowing(w.base.This(), w.unrelated.ID())
	if n := w.c.Listener().Count(errors.KindIllegalNarrowing); n != len(tests) {
		t.Errorf("duplicate diagnostic recorded, got %d", n)
	}

	if _, err := w.c.ResolveAutoNarrowing(w.base.This(), types.DeclID(9999)); err == nil {
		t.Error("expected error for unknown context class")
	}
}

func TestInferAutoNarrowing(t *testing.T) {
	w := newWorld(t)

	got := w.c.InferAutoNarrowing(types.NewUnion(w.base.Type(), w.object), w.base.ID())
	if s := w.c.Format(got); s != "this | Object" {
		t.Errorf("got %q", s)
	}

	got = w.c.InferAutoNarrowing(w.gbase.Type(w.gbase.Param("T")), w.gbase.ID())
	if !types.Equal(got, w.gbase.This()) {
		t.Errorf("GBase<T> should become this, got %s", w.c.Format(got))
	}
	got = w.c.InferAutoNarrowing(w.gbase.Type(w.str), w.gbase.ID())
	if !types.Equal(got, w.gbase.Type(w.str)) {
		t.Errorf("GBase<String> should be kept, got %s", w.c.Format(got))
	}
	got = w.c.InferAutoNarrowing(w.box.Type(w.base.Type()), w.base.ID())
	if s := w.c.Format(got); s != "Box<this>" {
		t.Errorf("got %q", s)
	}

	// narrowing what was inferred gives back the original
	back, err := w.c.ResolveAutoNarrowing(got, w.base.ID())
	if err != nil || !types.Equal(back, w.box.Type(w.base.Type())) {
		t.Errorf("round trip: %v %v", back, err)
	}
}

func TestDeclarationLevelClass(t *testing.T) {
	w := newWorld(t)

	tests := []struct {
		name string
		ref  types.Ref
		want types.DeclID
		ok   bool
	}{
		{"class", types.ClassRef{Decl: w.base.ID()}, w.base.ID(), true},
		{"this", types.ThisClassRef{Decl: w.base.ID()}, w.base.ID(), true},
		{"parent", types.ParentClassRef{Decl: w.inner.ID(), Depth: 1}, w.outer.ID(), true},
		{"parent too deep", types.ParentClassRef{Decl: w.inner.ID(), Depth: 9}, types.NoDecl, false},
		{"child through extends", types.ChildClassRef{Decl: w.derived.ID(), Name: "Node"}, w.node.ID(), true},
		{"formal", types.PropertyRef{Decl: w.box.ID(), Name: "T"}, types.NoDecl, false},
	}
	for _, tc := range tests {
		got, ok := w.c.DeclarationLevelClass(tc.ref)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
