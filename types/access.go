package types

import "fmt"

// Access is the visibility level a type is viewed at.
// Levels are ordered: a view at a level sees members declared at that level or below.
type Access uint8

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
	AccessStruct
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	case AccessStruct:
		return "struct"
	default:
		return fmt.Sprintf("access(%d)", uint8(a))
	}
}

// Permits reports whether a member declared with access member is visible from a
func (a Access) Permits(member Access) bool {
	return member <= a
}

// ParseAccess converts a keyword into an Access
func ParseAccess(s string) (Access, error) {
	switch s {
	case "", "public":
		return AccessPublic, nil
	case "protected":
		return AccessProtected, nil
	case "private":
		return AccessPrivate, nil
	case "struct":
		return AccessStruct, nil
	default:
		return AccessPublic, fmt.Errorf("unknown access %q", s)
	}
}

// Usage says whether a formal type is produced or consumed
type Usage uint8

const (
	UsageNo Usage = iota
	UsageYes
)

// UsageOf converts a bool into a Usage
func UsageOf(b bool) Usage {
	if b {
		return UsageYes
	}
	return UsageNo
}

// Yes reports whether u is UsageYes
func (u Usage) Yes() bool { return u == UsageYes }

// Or combines two usages
func (u Usage) Or(v Usage) Usage { return UsageOf(u.Yes() || v.Yes()) }

func (u Usage) String() string {
	if u.Yes() {
		return "yes"
	}
	return "no"
}
