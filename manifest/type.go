package manifest

import (
	"fmt"
	"strings"

	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"gopkg.in/yaml.v3"
)

// ThisName is the scalar that denotes the auto-narrowing this type
const ThisName = "this"

// Type is a type expression written as a YAML node.
//
// A scalar is a name, resolved in the scope the type appears in; "this" is the
// this type. Mappings spell out every other form:
//
//	{class: Box, args: [String]}
//	{union: [A, B]}
//	{intersection: [A, B]}
//	{immutable: T}
//	{access: private, type: T}
//	{annotated: Logged, type: T}
//	{parent: 1}
//	{child: Node}
type Type struct {
	Immutable    *Type
	Annotation   *Type
	Inner        *Type
	Name         string
	Access       string
	Child        string
	Args         []Type
	Union        []Type
	Intersection []Type
	Parent       int
	This         bool
}

type typeFields struct {
	Immutable    *Type  `yaml:"immutable"`
	Annotated    *Type  `yaml:"annotated"`
	Type         *Type  `yaml:"type"`
	Class        string `yaml:"class"`
	Access       string `yaml:"access"`
	Child        string `yaml:"child"`
	Args         []Type `yaml:"args"`
	Union        []Type `yaml:"union"`
	Intersection []Type `yaml:"intersection"`
	Parent       int    `yaml:"parent"`
}

// Named returns the type naming a declaration, optionally parameterized
func Named(name string, args ...Type) Type {
	return Type{Name: name, Args: args}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *Type) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		name := strings.TrimSpace(value.Value)
		if name == "" {
			return typeError(value, "empty type name")
		}
		if name == ThisName {
			*t = Type{This: true}
			return nil
		}
		*t = Type{Name: name}
		return nil

	case yaml.MappingNode:
		var f typeFields
		if err := value.Decode(&f); err != nil {
			return err
		}
		return t.fromFields(value, f)

	default:
		return typeError(value, "type must be a name or a mapping")
	}
}

func (t *Type) fromFields(value *yaml.Node, f typeFields) error {
	forms := 0
	count := func(set bool) {
		if set {
			forms++
		}
	}
	count(f.Class != "")
	count(len(f.Union) > 0)
	count(len(f.Intersection) > 0)
	count(f.Immutable != nil)
	count(f.Access != "")
	count(f.Annotated != nil)
	count(f.Parent != 0)
	count(f.Child != "")
	if forms != 1 {
		return typeError(value, "exactly one of class, union, intersection, immutable, access, annotated, parent or child is required")
	}

	switch {
	case f.Class != "":
		*t = Type{Name: f.Class, Args: f.Args}
	case len(f.Union) > 0:
		if len(f.Union) < 2 {
			return typeError(value, "union needs at least two members")
		}
		*t = Type{Union: f.Union}
	case len(f.Intersection) > 0:
		if len(f.Intersection) < 2 {
			return typeError(value, "intersection needs at least two members")
		}
		*t = Type{Intersection: f.Intersection}
	case f.Immutable != nil:
		*t = Type{Immutable: f.Immutable}
	case f.Access != "":
		if _, err := types.ParseAccess(f.Access); err != nil {
			return typeError(value, err.Error())
		}
		if f.Type == nil {
			return typeError(value, "access needs a type")
		}
		*t = Type{Access: f.Access, Inner: f.Type}
	case f.Annotated != nil:
		if f.Type == nil {
			return typeError(value, "annotated needs a type")
		}
		*t = Type{Annotation: f.Annotated, Inner: f.Type}
	case f.Parent != 0:
		if f.Parent < 0 {
			return typeError(value, "parent depth must be positive")
		}
		*t = Type{Parent: f.Parent}
	default:
		*t = Type{Child: f.Child}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, producing the shortest form
func (t Type) MarshalYAML() (any, error) {
	switch {
	case t.This:
		return ThisName, nil
	case t.Name != "" && len(t.Args) == 0:
		return t.Name, nil
	case t.Name != "":
		return map[string]any{"class": t.Name, "args": t.Args}, nil
	case len(t.Union) > 0:
		return map[string]any{"union": t.Union}, nil
	case len(t.Intersection) > 0:
		return map[string]any{"intersection": t.Intersection}, nil
	case t.Immutable != nil:
		return map[string]any{"immutable": t.Immutable}, nil
	case t.Access != "":
		return map[string]any{"access": t.Access, "type": t.Inner}, nil
	case t.Annotation != nil:
		return map[string]any{"annotated": t.Annotation, "type": t.Inner}, nil
	case t.Parent > 0:
		return map[string]any{"parent": t.Parent}, nil
	case t.Child != "":
		return map[string]any{"child": t.Child}, nil
	}
	return nil, fmt.Errorf("empty type")
}

// ParseType reads a single type from YAML source, typically a flow node
// such as "{class: Box, args: [String]}"
func ParseType(src string) (Type, error) {
	var t Type
	if err := yaml.Unmarshal([]byte(src), &t); err != nil {
		return Type{}, errors.ParseFailed("type", err)
	}
	if t.isZero() {
		return Type{}, errors.InvalidInput(errors.PhaseParse, "empty type")
	}
	return t, nil
}

func (t Type) isZero() bool {
	return !t.This && t.Name == "" && len(t.Union) == 0 && len(t.Intersection) == 0 &&
		t.Immutable == nil && t.Access == "" && t.Annotation == nil && t.Parent == 0 && t.Child == ""
}

// Node builds the type node with names left pending in scope. The linker or a
// link.Resolver turns them into concrete references.
func (t Type) Node(scope types.Scope) (types.Node, error) {
	switch {
	case t.This:
		if scope.Decl == types.NoDecl {
			return nil, errors.InvalidInput(errors.PhaseParse, "this used outside a class")
		}
		return types.NewTerminal(types.ThisClassRef{Decl: scope.Decl}), nil

	case t.Parent > 0:
		if scope.Decl == types.NoDecl {
			return nil, errors.InvalidInput(errors.PhaseParse, "parent used outside a class")
		}
		return types.NewTerminal(types.ParentClassRef{Decl: scope.Decl, Depth: t.Parent}), nil

	case t.Child != "":
		if scope.Decl == types.NoDecl {
			return nil, errors.InvalidInput(errors.PhaseParse, "child used outside a class")
		}
		return types.NewTerminal(types.ChildClassRef{Decl: scope.Decl, Name: t.Child}), nil

	case t.Name != "":
		base := types.NewTerminal(types.PendingRef{Name: t.Name, Scope: scope})
		args, err := nodes(t.Args, scope)
		if err != nil {
			return nil, err
		}
		return types.NewParameterized(base, args...), nil

	case len(t.Union) > 0:
		members, err := nodes(t.Union, scope)
		if err != nil {
			return nil, err
		}
		out := members[0]
		for _, m := range members[1:] {
			out = types.NewUnion(out, m)
		}
		return out, nil

	case len(t.Intersection) > 0:
		members, err := nodes(t.Intersection, scope)
		if err != nil {
			return nil, err
		}
		out := members[0]
		for _, m := range members[1:] {
			out = types.NewIntersection(out, m)
		}
		return out, nil

	case t.Immutable != nil:
		inner, err := t.Immutable.Node(scope)
		if err != nil {
			return nil, err
		}
		return types.NewImmutable(inner), nil

	case t.Access != "":
		access, err := types.ParseAccess(t.Access)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "access")
		}
		inner, err := t.innerNode(scope)
		if err != nil {
			return nil, err
		}
		return types.NewAccess(access, inner), nil

	case t.Annotation != nil:
		annotation, err := t.Annotation.Node(scope)
		if err != nil {
			return nil, err
		}
		inner, err := t.innerNode(scope)
		if err != nil {
			return nil, err
		}
		return types.NewAnnotated(annotation, inner), nil
	}
	return nil, errors.InvalidInput(errors.PhaseParse, "empty type")
}

func (t Type) innerNode(scope types.Scope) (types.Node, error) {
	if t.Inner == nil {
		return nil, errors.InvalidInput(errors.PhaseParse, "qualifier without a type")
	}
	return t.Inner.Node(scope)
}

func nodes(ts []Type, scope types.Scope) ([]types.Node, error) {
	out := make([]types.Node, len(ts))
	for i, t := range ts {
		n, err := t.Node(scope)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func typeError(value *yaml.Node, detail string) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Detail("line %d: %s", value.Line, detail).
		Build()
}
