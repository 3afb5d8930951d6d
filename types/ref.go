package types

import (
	"fmt"
	"strconv"
)

// DeclID identifies a declaration in the repository arena
type DeclID uint32

// TypedefID identifies a typedef in the repository arena
type TypedefID uint32

// NoDecl marks the absence of a declaration (e.g. the parent of a top-level module)
const NoDecl = DeclID(^uint32(0))

// ClassScope is the Method value of a Scope that is not inside a method
const ClassScope = -1

// Scope is the lexical position a pending name was written at
type Scope struct {
	Decl   DeclID
	Method int // index into the declaration's methods, or ClassScope
}

func (s Scope) key() string {
	return strconv.FormatUint(uint64(s.Decl), 10) + "." + strconv.Itoa(s.Method)
}

// RefKind identifies the variant of a defining reference
type RefKind uint8

const (
	RefModule RefKind = iota
	RefPackage
	RefClass
	RefTypedef
	RefProperty
	RefRegister
	RefThisClass
	RefParentClass
	RefChildClass
	RefPending
)

var refKindNames = [...]string{
	RefModule:      "module",
	RefPackage:     "package",
	RefClass:       "class",
	RefTypedef:     "typedef",
	RefProperty:    "property",
	RefRegister:    "register",
	RefThisClass:   "this-class",
	RefParentClass: "parent-class",
	RefChildClass:  "child-class",
	RefPending:     "pending",
}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) {
		return refKindNames[k]
	}
	return fmt.Sprintf("ref(%d)", uint8(k))
}

// IsAutoNarrowing reports whether the kind is resolved relative to a context class
func (k RefKind) IsAutoNarrowing() bool {
	return k == RefThisClass || k == RefParentClass || k == RefChildClass
}

// IsFormal reports whether the kind is a formal type parameter
func (k RefKind) IsFormal() bool {
	return k == RefProperty || k == RefRegister
}

// Ref is the defining reference of a terminal type node.
// The set of implementations is closed.
type Ref interface {
	Kind() RefKind
	Key() string
	isRef()
}

// ModuleRef names a module
type ModuleRef struct {
	Decl DeclID
}

// PackageRef names a package
type PackageRef struct {
	Decl DeclID
}

// ClassRef names a class, interface, mixin, const, enum or service
type ClassRef struct {
	Decl DeclID
}

// TypedefRef names a type alias; it must be expanded before reasoning
type TypedefRef struct {
	Typedef TypedefID
}

// PropertyRef names a class's own formal type parameter
type PropertyRef struct {
	Name string
	Decl DeclID
}

// RegisterRef names a method's local type parameter
type RegisterRef struct {
	Name   string
	Decl   DeclID
	Method int
	Index  int
}

// ThisClassRef is the auto-narrowing "this type" declared inside Decl
type ThisClassRef struct {
	Decl DeclID
}

// ParentClassRef is the auto-narrowing class Depth levels above Decl
type ParentClassRef struct {
	Decl  DeclID
	Depth int
}

// ChildClassRef is the auto-narrowing child class Name of Decl
type ChildClassRef struct {
	Name string
	Decl DeclID
}

// PendingRef is a name not yet resolved; valid only before linking completes
type PendingRef struct {
	Name  string
	Scope Scope
}

func (ModuleRef) Kind() RefKind      { return RefModule }
func (PackageRef) Kind() RefKind     { return RefPackage }
func (ClassRef) Kind() RefKind       { return RefClass }
func (TypedefRef) Kind() RefKind     { return RefTypedef }
func (PropertyRef) Kind() RefKind    { return RefProperty }
func (RegisterRef) Kind() RefKind    { return RefRegister }
func (ThisClassRef) Kind() RefKind   { return RefThisClass }
func (ParentClassRef) Kind() RefKind { return RefParentClass }
func (ChildClassRef) Kind() RefKind  { return RefChildClass }
func (PendingRef) Kind() RefKind     { return RefPending }

func (ModuleRef) isRef()      {}
func (PackageRef) isRef()     {}
func (ClassRef) isRef()       {}
func (TypedefRef) isRef()     {}
func (PropertyRef) isRef()    {}
func (RegisterRef) isRef()    {}
func (ThisClassRef) isRef()   {}
func (ParentClassRef) isRef() {}
func (ChildClassRef) isRef()  {}
func (PendingRef) isRef()     {}

func declKey(prefix string, id DeclID) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

func (r ModuleRef) Key() string  { return declKey("module#", r.Decl) }
func (r PackageRef) Key() string { return declKey("package#", r.Decl) }
func (r ClassRef) Key() string   { return declKey("class#", r.Decl) }
func (r TypedefRef) Key() string {
	return "typedef#" + strconv.FormatUint(uint64(r.Typedef), 10)
}
func (r PropertyRef) Key() string { return declKey("prop#", r.Decl) + "." + r.Name }
func (r RegisterRef) Key() string {
	return declKey("reg#", r.Decl) + "." + strconv.Itoa(r.Method) + "." + strconv.Itoa(r.Index)
}
func (r ThisClassRef) Key() string { return declKey("this#", r.Decl) }
func (r ParentClassRef) Key() string {
	return declKey("parent#", r.Decl) + "^" + strconv.Itoa(r.Depth)
}
func (r ChildClassRef) Key() string { return declKey("child#", r.Decl) + "/" + r.Name }
func (r PendingRef) Key() string    { return "?" + r.Name + "@" + r.Scope.key() }

// DeclOf returns the declaration an identity ref names directly.
// Formal, typedef and pending refs report false.
func DeclOf(r Ref) (DeclID, bool) {
	switch r := r.(type) {
	case ModuleRef:
		return r.Decl, true
	case PackageRef:
		return r.Decl, true
	case ClassRef:
		return r.Decl, true
	default:
		return NoDecl, false
	}
}

// SameRef reports whether two refs denote the same definition
func SameRef(a, b Ref) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}
