package types

import (
	"strconv"
	"strings"
)

// Namer supplies display names for arena ids
type Namer interface {
	DeclName(id DeclID) string
	TypedefName(id TypedefID) string
}

// Format renders n for humans. With a nil namer, ids are printed instead of names.
func Format(n Node, names Namer) string {
	var b strings.Builder
	format(&b, n, names)
	return b.String()
}

// FormatRef renders a defining reference for humans
func FormatRef(r Ref, names Namer) string {
	var b strings.Builder
	formatRef(&b, r, names)
	return b.String()
}

func format(b *strings.Builder, n Node, names Namer) {
	switch t := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Terminal:
		formatRef(b, t.ref, names)
	case *Parameterized:
		format(b, t.base, names)
		b.WriteByte('<')
		for i, a := range t.args {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, a, names)
		}
		b.WriteByte('>')
	case *Union:
		format(b, t.left, names)
		b.WriteString(" | ")
		format(b, t.right, names)
	case *Intersection:
		format(b, t.left, names)
		b.WriteString(" + ")
		format(b, t.right, names)
	case *AccessType:
		format(b, t.inner, names)
		b.WriteByte(':')
		b.WriteString(t.access.String())
	case *Immutable:
		b.WriteString("immutable ")
		format(b, t.inner, names)
	case *Annotated:
		b.WriteByte('@')
		format(b, t.annotation, names)
		b.WriteByte(' ')
		format(b, t.inner, names)
	}
}

func declName(id DeclID, names Namer) string {
	if names != nil {
		if s := names.DeclName(id); s != "" {
			return s
		}
	}
	return "#" + strconv.FormatUint(uint64(id), 10)
}

func formatRef(b *strings.Builder, r Ref, names Namer) {
	switch r := r.(type) {
	case ModuleRef:
		b.WriteString(declName(r.Decl, names))
	case PackageRef:
		b.WriteString(declName(r.Decl, names))
	case ClassRef:
		b.WriteString(declName(r.Decl, names))
	case TypedefRef:
		if names != nil {
			if s := names.TypedefName(r.Typedef); s != "" {
				b.WriteString(s)
				return
			}
		}
		b.WriteString("typedef#")
		b.WriteString(strconv.FormatUint(uint64(r.Typedef), 10))
	case PropertyRef:
		b.WriteString(r.Name)
	case RegisterRef:
		b.WriteString(r.Name)
	case ThisClassRef:
		b.WriteString("this")
	case ParentClassRef:
		b.WriteString("this")
		for i := 0; i < r.Depth; i++ {
			b.WriteString(":parent")
		}
	case ChildClassRef:
		b.WriteString("this:child(")
		b.WriteString(r.Name)
		b.WriteByte(')')
	case PendingRef:
		b.WriteByte('?')
		b.WriteString(r.Name)
	case nil:
		b.WriteString("<nil>")
	}
}
