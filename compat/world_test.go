package compat

import (
	"context"
	"testing"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/link"
	"github.com/wippyai/typecore/types"
)

// world is a small linked program shared by the checker tests
type world struct {
	c *Checker

	object, str, number types.Node

	base, mid, derived, unrelated *decl.DeclBuilder
	iface                         *decl.DeclBuilder
	drawable, shape, blob         *decl.DeclBuilder
	cloneable, sheep, goat        *decl.DeclBuilder
	box, roBox, consumer, pipe    *decl.DeclBuilder
	hidden, cell, roCell          *decl.DeclBuilder
	stringBox, myBox              *decl.DeclBuilder
	outer, inner, node, gbase     *decl.DeclBuilder
	target, cyclic                *decl.DeclBuilder
	logged, extLogged, bare       *decl.DeclBuilder
	holder, point                 *decl.DeclBuilder
	comparable, num, plain        *decl.DeclBuilder
	sortable, list                *decl.DeclBuilder
	app                           *decl.DeclBuilder
}

func method(name string, returns ...types.Node) decl.Method {
	return decl.Method{Name: name, Returns: returns}
}

func newWorld(t *testing.T, opts ...func(*Options)) *world {
	t.Helper()
	b := decl.NewBuilder()
	w := &world{app: b.Module("app")}
	app := w.app
	w.object = b.Object()

	str := app.Const("String")
	w.str = str.Type()
	w.number = app.Class("Number").Type()

	// nominal hierarchy
	w.base = app.Class("Base")
	w.base.Method(method("copy", w.base.This()))
	w.node = w.base.Class("Node")
	w.mid = app.Class("Mid").Extends(w.base.Type())
	w.iface = app.Interface("Iface")
	w.iface.Method(method("name", w.str))
	w.derived = app.Class("Derived").Extends(w.base.Type()).Implements(w.iface.Type())
	w.unrelated = app.Class("Unrelated")

	// structural
	w.drawable = app.Interface("Drawable")
	w.drawable.Method(method("draw", w.object))
	w.shape = app.Class("Shape")
	w.shape.Method(method("draw", w.str))
	w.blob = app.Class("Blob")
	w.blob.Method(method("paint", w.object))
	w.cloneable = app.Interface("Cloneable")
	w.cloneable.Method(method("clone", w.cloneable.This()))
	w.sheep = app.Class("Sheep")
	w.sheep.Method(method("clone", w.sheep.Type()))
	w.goat = app.Class("Goat")
	w.goat.Method(method("clone", w.object))

	// variance
	w.box = app.Class("Box").Formal("T", nil)
	w.box.Method(method("get", w.box.Param("T"))).
		Method(decl.Method{Name: "put", Params: []decl.Param{{Name: "v", Type: w.box.Param("T")}}})
	w.roBox = app.Class("ReadOnlyBox").Formal("T", nil)
	w.roBox.Method(method("get", w.roBox.Param("T")))
	w.consumer = app.Interface("Consumer").Formal("T", nil)
	w.consumer.Method(decl.Method{Name: "accept", Params: []decl.Param{{Name: "v", Type: w.consumer.Param("T")}}})
	w.pipe = app.Class("Pipe").Formal("T", nil)
	w.pipe.Method(method("sink", w.consumer.Type(w.pipe.Param("T"))))
	w.hidden = app.Class("Hidden").Formal("T", nil)
	w.hidden.Method(method("get", w.hidden.Param("T"))).
		Method(decl.Method{
			Name:   "put",
			Access: types.AccessPrivate,
			Params: []decl.Param{{Name: "v", Type: w.hidden.Param("T")}},
		})
	w.cell = app.Class("Cell").Formal("T", nil)
	w.cell.Property(decl.Property{Name: "value", Type: w.cell.Param("T")})
	w.roCell = app.Class("ReadOnlyCell").Formal("T", nil)
	w.roCell.Property(decl.Property{Name: "value", Type: w.roCell.Param("T"), ReadOnly: true})
	w.stringBox = app.Class("StringBox").Extends(w.roBox.Type(w.str))
	w.myBox = app.Class("MyBox").Formal("X", nil)
	w.myBox.Extends(w.roBox.Type(w.myBox.Param("X")))

	// narrowing
	w.outer = app.Class("Outer")
	w.inner = w.outer.Class("Inner")
	w.gbase = app.Class("GBase").Formal("T", nil)

	// mixins
	w.target = app.Class("Target")
	w.cyclic = app.Mixin("Cyclic").Into(w.target.Type())
	w.target.Incorporates(w.cyclic.Type())
	w.logged = app.Mixin("Logged").Into(w.base.Type())
	w.extLogged = app.Mixin("ExtLogged").Extends(w.logged.Type())
	w.bare = app.Mixin("Bare")

	// formals and consts
	w.holder = app.Class("Holder").Formal("T", w.base.Type())
	w.point = app.Const("Point")

	// conditional incorporation
	w.comparable = app.Interface("Comparable")
	w.comparable.Method(decl.Method{Name: "compareTo", Params: []decl.Param{{Name: "o", Type: w.object}}, Returns: []types.Node{w.number}})
	w.num = app.Class("Num").Implements(w.comparable.Type())
	w.plain = app.Class("Plain")
	w.sortable = app.Mixin("Sortable")
	w.list = app.Class("List").Formal("E", nil)
	w.list.Incorporates(w.sortable.Type(), decl.Formal{Name: "E", Constraint: w.comparable.Type()})

	repo, err := link.NewWithDefaults().Link(context.Background(), b)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	w.c, err = New(repo, o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func permissive(o *Options) { o.Variance = VariancePermissive }

func noStructural(o *Options) { o.Structural = false }
