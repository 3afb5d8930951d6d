package decl

import (
	"strings"
	"testing"

	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		format    Format
		name      string
		immutable bool
	}{
		{FormatClass, "class", false},
		{FormatInterface, "interface", false},
		{FormatMixin, "mixin", false},
		{FormatConst, "const", true},
		{FormatEnum, "enum", true},
		{FormatService, "service", false},
		{FormatModule, "module", true},
		{FormatPackage, "package", true},
	}

	for _, tc := range tests {
		if got := tc.format.String(); got != tc.name {
			t.Errorf("String() = %q, want %q", got, tc.name)
		}
		if got := tc.format.IsImmutable(); got != tc.immutable {
			t.Errorf("%s IsImmutable() = %v, want %v", tc.name, got, tc.immutable)
		}
		parsed, err := ParseFormat(tc.name)
		if err != nil || parsed != tc.format {
			t.Errorf("ParseFormat(%q) = %v, %v", tc.name, parsed, err)
		}
	}

	if _, err := ParseFormat("struct"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCompositionRank(t *testing.T) {
	order := []Composition{Extends, Incorporates, Implements, Delegates, Into}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
	if Equal.Rank() >= Extends.Rank() {
		t.Error("equal should rank first")
	}

	c, err := ParseComposition("delegates")
	if err != nil || c != Delegates {
		t.Errorf("ParseComposition(delegates) = %v, %v", c, err)
	}
}

func TestBuilder_ObjectRoot(t *testing.T) {
	b := NewBuilder()
	repo := b.Repository()

	obj, err := repo.Declaration(repo.Object())
	if err != nil {
		t.Fatalf("Object lookup: %v", err)
	}
	if obj.Name != ObjectClass || obj.Format != FormatClass {
		t.Errorf("unexpected object declaration %s %s", obj.Format, obj.Name)
	}
	if got := repo.QualifiedName(obj.ID); got != "ecstasy.Object" {
		t.Errorf("QualifiedName = %q", got)
	}
	if id, ok := repo.Lookup("ecstasy.Object"); !ok || id != obj.ID {
		t.Errorf("Lookup(ecstasy.Object) = %v, %v", id, ok)
	}
}

func TestBuilder_Nesting(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	shapes := app.Package("shapes")
	circle := shapes.Class("Circle")
	inner := circle.Class("Inner")

	repo := b.Repository()
	if id, ok := repo.Lookup("app.shapes.Circle.Inner"); !ok || id != inner.ID() {
		t.Errorf("Lookup = %v, %v", id, ok)
	}
	if got := repo.Ancestors(inner.ID()); len(got) != 3 || got[0] != circle.ID() || got[2] != app.ID() {
		t.Errorf("Ancestors = %v", got)
	}
	if id, ok := repo.Find("Circle"); !ok || id != circle.ID() {
		t.Errorf("Find(Circle) = %v, %v", id, ok)
	}
	if id, ok := repo.Children(shapes.ID(), "Circle"); !ok || id != circle.ID() {
		t.Errorf("Children = %v, %v", id, ok)
	}
	if b.Module("app").ID() != app.ID() {
		t.Error("reopening a module should return the same declaration")
	}
	if shapes.Class("Circle").ID() != circle.ID() {
		t.Error("reopening a class should return the same declaration")
	}
	if len(repo.Roots()) != 2 {
		t.Errorf("expected 2 roots, got %d", len(repo.Roots()))
	}
	if err := b.Err(); err != nil {
		t.Fatalf("unexpected builder error: %v", err)
	}
}

func TestBuilder_FindAmbiguous(t *testing.T) {
	b := NewBuilder()
	b.Module("a").Class("Node")
	b.Module("b").Class("Node")

	if _, ok := b.Repository().Find("Node"); ok {
		t.Error("ambiguous simple name should not resolve")
	}
	if _, ok := b.Repository().Find("a.Node"); !ok {
		t.Error("qualified name should resolve")
	}
}

func TestBuilder_Duplicates(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	app.Class("Thing")
	app.Interface("Thing")
	box := app.Class("Box").Formal("T", nil).Formal("T", nil)
	box.Property(Property{Name: "value", Type: box.Param("T")})
	box.Property(Property{Name: "value", Type: box.Param("T")})

	err := b.Err()
	if err == nil {
		t.Fatal("expected duplicate errors")
	}
	list, ok := err.(*errors.ListError)
	if !ok {
		t.Fatalf("expected *ListError, got %T", err)
	}
	if len(list.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(list.Errors), err)
	}
	for _, e := range list.Errors {
		if e.Kind != errors.KindDuplicate {
			t.Errorf("unexpected kind %s", e.Kind)
		}
	}
}

func TestBuilder_FrozenRejectsMutation(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	b.Repository().Freeze()

	app.Class("Late")
	app.Formal("T", nil)

	if err := b.Err(); err == nil || !strings.Contains(err.Error(), "after freeze") {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if _, ok := b.Repository().Lookup("app.Late"); ok {
		t.Error("declaration added after freeze")
	}
	if err := b.Repository().Replace(app.Declaration()); err == nil {
		t.Error("Replace after freeze should fail")
	}
}

func TestBuilder_FormalDefaultsToObject(t *testing.T) {
	b := NewBuilder()
	box := b.Module("app").Class("Box").Formal("T", nil)

	formals := box.Declaration().FormalParameters()
	if len(formals) != 1 || formals[0].Name != "T" {
		t.Fatalf("unexpected formals %v", formals)
	}
	if !types.Equal(formals[0].Constraint, b.Object()) {
		t.Errorf("constraint = %s, want Object", types.Format(formals[0].Constraint, b.Repository()))
	}
	if box.Declaration().FormalIndex("U") != -1 {
		t.Error("unknown formal should have index -1")
	}
}

func TestBuilder_TypeRefs(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	pkg := app.Package("util")
	list := pkg.Class("List").Formal("E", nil)

	if ref, _ := types.RefOf(app.Type()); ref.Kind() != types.RefModule {
		t.Errorf("module type ref kind = %s", ref.Kind())
	}
	if ref, _ := types.RefOf(pkg.Type()); ref.Kind() != types.RefPackage {
		t.Errorf("package type ref kind = %s", ref.Kind())
	}
	listOfObj := list.Type(b.Object())
	if got := types.Format(listOfObj, b.Repository()); got != "List<Object>" {
		t.Errorf("Format = %q", got)
	}
	if got := types.Format(list.Param("E"), b.Repository()); got != "E" {
		t.Errorf("Format = %q", got)
	}
}

func TestDeclaration_Surface(t *testing.T) {
	b := NewBuilder()
	box := b.Module("app").Class("Box").Formal("T", nil)
	T := box.Param("T")
	box.Property(Property{Name: "size", Type: b.Object(), ReadOnly: true}).
		Property(Property{Name: "secret", Type: T, Access: types.AccessPrivate}).
		Method(Method{Name: "get", Returns: []types.Node{T}}).
		Method(Method{Name: "put", Params: []Param{{Name: "v", Type: T}}}).
		Method(Method{Name: "reset", Access: types.AccessProtected})

	d := box.Declaration()
	tests := []struct {
		access types.Access
		want   []string
	}{
		{types.AccessPublic, []string{"size", "get", "put"}},
		{types.AccessProtected, []string{"size", "get", "put", "reset"}},
		{types.AccessPrivate, []string{"size", "secret", "get", "put", "reset"}},
	}

	for _, tc := range tests {
		sigs := d.Surface(tc.access)
		var names []string
		for _, s := range sigs {
			names = append(names, s.Name)
		}
		if strings.Join(names, ",") != strings.Join(tc.want, ",") {
			t.Errorf("Surface(%s) = %v, want %v", tc.access, names, tc.want)
		}
	}

	sigs := d.Surface(types.AccessPublic)
	if sigs[0].Kind != SigProperty || sigs[0].Method != -1 || !sigs[0].ReadOnly {
		t.Errorf("unexpected property signature %+v", sigs[0])
	}
	if sigs[2].Kind != SigMethod || sigs[2].Method != 1 || len(sigs[2].Params) != 1 {
		t.Errorf("unexpected method signature %+v", sigs[2])
	}
	if got := sigs[1].Format(b.Repository()); got != "T get()" {
		t.Errorf("Format = %q", got)
	}
	if got := sigs[2].Format(b.Repository()); got != "void put(T)" {
		t.Errorf("Format = %q", got)
	}
	if got := sigs[0].Format(b.Repository()); got != "Object size.get" {
		t.Errorf("Format = %q", got)
	}
}

func TestDeclaration_Contributions(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	shape := app.Interface("Shape")
	base := app.Class("Base")
	logged := app.Mixin("Logged").Into(base.Type())
	derived := app.Class("Derived").
		Extends(base.Type()).
		Incorporates(logged.Type()).
		Implements(shape.Type()).
		Delegates(shape.Type(), "impl")

	steps := derived.Declaration().CompositionSteps()
	kinds := []Composition{Extends, Incorporates, Implements, Delegates}
	if len(steps) != len(kinds) {
		t.Fatalf("expected %d steps, got %d", len(kinds), len(steps))
	}
	for i, k := range kinds {
		if steps[i].Kind != k {
			t.Errorf("step %d = %s, want %s", i, steps[i].Kind, k)
		}
	}
	if steps[3].Delegate != "impl" {
		t.Errorf("delegate = %q", steps[3].Delegate)
	}
	if c, ok := logged.Declaration().FindContribution(Into); !ok || !types.Equal(c.Type, base.Type()) {
		t.Error("mixin into-type not found")
	}

	derived.Contribute(Contribution{Kind: Implements})
	if b.Err() == nil {
		t.Error("expected error for contribution without type")
	}
}

func TestRepository_EditReplace(t *testing.T) {
	b := NewBuilder()
	box := b.Module("app").Class("Box")
	box.Method(Method{Name: "get", Returns: []types.Node{box.Pending("T")}})

	repo := b.Repository()
	copyDecl, err := repo.Edit(box.ID())
	if err != nil {
		t.Fatal(err)
	}
	copyDecl.Methods[0].Returns[0] = b.Object()

	original, _ := repo.Declaration(box.ID())
	if types.IsResolved(original.Methods[0].Returns[0]) {
		t.Fatal("Edit must not alias the original")
	}
	if err := repo.Replace(copyDecl); err != nil {
		t.Fatal(err)
	}
	replaced, _ := repo.Declaration(box.ID())
	if !types.IsResolved(replaced.Methods[0].Returns[0]) {
		t.Error("Replace did not install the copy")
	}
	if _, ok := replaced.Child("anything"); ok {
		t.Error("unexpected child")
	}
}

func TestBuilder_Typedef(t *testing.T) {
	b := NewBuilder()
	app := b.Module("app")
	id := app.Typedef("Any", b.Object())
	dup := app.Typedef("Any", b.Object())

	repo := b.Repository()
	td, err := repo.Typedef(id)
	if err != nil {
		t.Fatal(err)
	}
	if td.Name != "Any" || td.Scope != app.ID() || td.ID != id {
		t.Errorf("unexpected typedef %+v", td)
	}
	if dup != id {
		t.Error("duplicate typedef should return the existing id")
	}
	if b.Err() == nil {
		t.Error("expected duplicate typedef error")
	}
	if got := repo.TypedefName(id); got != "Any" {
		t.Errorf("TypedefName = %q", got)
	}
	if _, err := repo.Typedef(99); err == nil {
		t.Error("expected error for unknown typedef")
	}
}
