package manifest

import (
	"bytes"
	"os"

	"github.com/wippyai/typecore/decl"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"gopkg.in/yaml.v3"
)

// Manifest describes a program's declarations as YAML
type Manifest struct {
	Modules []Decl `yaml:"modules"`
}

// Decl is one declaration and everything nested in it
type Decl struct {
	Extends      *Type           `yaml:"extends,omitempty"`
	Into         *Type           `yaml:"into,omitempty"`
	Name         string          `yaml:"name"`
	Format       string          `yaml:"format,omitempty"`
	Formals      []Formal        `yaml:"formals,omitempty"`
	Implements   []Type          `yaml:"implements,omitempty"`
	Incorporates []Incorporation `yaml:"incorporates,omitempty"`
	Delegates    []Delegation    `yaml:"delegates,omitempty"`
	Methods      []Method        `yaml:"methods,omitempty"`
	Properties   []Property      `yaml:"properties,omitempty"`
	Typedefs     []Typedef       `yaml:"typedefs,omitempty"`
	Members      []Decl          `yaml:"members,omitempty"`
}

// Formal is a formal type parameter; a missing constraint means Object
type Formal struct {
	Constraint *Type  `yaml:"constraint,omitempty"`
	Name       string `yaml:"name"`
}

// Incorporation incorporates a mixin, conditionally when When is set
type Incorporation struct {
	Type Type     `yaml:"type"`
	When []Formal `yaml:"when,omitempty"`
}

// Delegation implements an interface by delegating to a property
type Delegation struct {
	Type     Type   `yaml:"type"`
	Property string `yaml:"property"`
}

// Method is a method signature
type Method struct {
	Name       string   `yaml:"name"`
	Access     string   `yaml:"access,omitempty"`
	TypeParams []Formal `yaml:"typeParams,omitempty"`
	Params     []Param  `yaml:"params,omitempty"`
	Returns    []Type   `yaml:"returns,omitempty"`
}

// Param is a method parameter
type Param struct {
	Type Type   `yaml:"type"`
	Name string `yaml:"name"`
}

// Property is a typed property
type Property struct {
	Type     Type   `yaml:"type"`
	Name     string `yaml:"name"`
	Access   string `yaml:"access,omitempty"`
	ReadOnly bool   `yaml:"readonly,omitempty"`
}

// Typedef is a named type alias
type Typedef struct {
	Type Type   `yaml:"type"`
	Name string `yaml:"name"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.ParseFailed("manifest", err)
	}
	if len(m.Modules) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "manifest declares no modules")
	}
	return &m, nil
}

// Load reads and decodes a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read manifest "+path, err)
	}
	return Parse(data)
}

// Build declares every module of the manifest in b. Names stay pending until
// the builder's repository is linked. All problems found are returned together.
func (m *Manifest) Build(b *decl.Builder) error {
	l := &loader{b: b}
	for _, mod := range m.Modules {
		if mod.Format != "" && mod.Format != decl.FormatModule.String() {
			l.fail(mod.Name, "top-level declaration must be a module, got %s", mod.Format)
			continue
		}
		if mod.Name == "" {
			l.fail("", "module without a name")
			continue
		}
		l.decl(b.Module(mod.Name), mod, mod.Name)
	}
	if err := b.Err(); err != nil {
		if list, ok := err.(*errors.ListError); ok {
			l.errs = append(l.errs, list.Errors...)
		}
	}
	if len(l.errs) > 0 {
		return &errors.ListError{Errors: l.errs}
	}
	return nil
}

type loader struct {
	b    *decl.Builder
	errs []*errors.Error
}

func (l *loader) fail(path, format string, args ...any) {
	l.errs = append(l.errs, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
		Decl(path).
		Detail(format, args...).
		Build())
}

func (l *loader) node(path string, t Type, scope types.Scope) (types.Node, bool) {
	n, err := t.Node(scope)
	if err != nil {
		l.fail(path, "%v", err)
		return nil, false
	}
	return n, true
}

func (l *loader) formals(path string, fs []Formal, scope types.Scope) []decl.Formal {
	out := make([]decl.Formal, 0, len(fs))
	for _, f := range fs {
		if f.Name == "" {
			l.fail(path, "formal without a name")
			continue
		}
		df := decl.Formal{Name: f.Name}
		if f.Constraint != nil {
			n, ok := l.node(path+"."+f.Name, *f.Constraint, scope)
			if !ok {
				continue
			}
			df.Constraint = n
		}
		out = append(out, df)
	}
	return out
}

func (l *loader) decl(d *decl.DeclBuilder, src Decl, path string) {
	scope := types.Scope{Decl: d.ID(), Method: types.ClassScope}

	for _, f := range l.formals(path, src.Formals, scope) {
		d.Formal(f.Name, f.Constraint)
	}

	if src.Extends != nil {
		if n, ok := l.node(path, *src.Extends, scope); ok {
			d.Extends(n)
		}
	}
	for _, inc := range src.Incorporates {
		if n, ok := l.node(path, inc.Type, scope); ok {
			d.Incorporates(n, l.formals(path, inc.When, scope)...)
		}
	}
	for _, t := range src.Implements {
		if n, ok := l.node(path, t, scope); ok {
			d.Implements(n)
		}
	}
	for _, del := range src.Delegates {
		if del.Property == "" {
			l.fail(path, "delegation without a property")
			continue
		}
		if n, ok := l.node(path, del.Type, scope); ok {
			d.Delegates(n, del.Property)
		}
	}
	if src.Into != nil {
		if n, ok := l.node(path, *src.Into, scope); ok {
			d.Into(n)
		}
	}

	for _, p := range src.Properties {
		l.property(d, p, path, scope)
	}
	for _, m := range src.Methods {
		l.method(d, m, path)
	}
	for _, td := range src.Typedefs {
		if n, ok := l.node(path+"."+td.Name, td.Type, scope); ok {
			d.Typedef(td.Name, n)
		}
	}

	for _, member := range src.Members {
		if member.Name == "" {
			l.fail(path, "member without a name")
			continue
		}
		format := decl.FormatClass
		if member.Format != "" {
			f, err := decl.ParseFormat(member.Format)
			if err != nil {
				l.fail(path+"."+member.Name, "%v", err)
				continue
			}
			format = f
		}
		if format == decl.FormatModule {
			l.fail(path+"."+member.Name, "modules cannot be nested")
			continue
		}
		l.decl(d.Declare(member.Name, format), member, path+"."+member.Name)
	}
}

func (l *loader) property(d *decl.DeclBuilder, p Property, path string, scope types.Scope) {
	access, err := types.ParseAccess(p.Access)
	if err != nil {
		l.fail(path+"."+p.Name, "%v", err)
		return
	}
	n, ok := l.node(path+"."+p.Name, p.Type, scope)
	if !ok {
		return
	}
	d.Property(decl.Property{Name: p.Name, Type: n, Access: access, ReadOnly: p.ReadOnly})
}

func (l *loader) method(d *decl.DeclBuilder, m Method, path string) {
	path += "." + m.Name
	access, err := types.ParseAccess(m.Access)
	if err != nil {
		l.fail(path, "%v", err)
		return
	}
	scope := types.Scope{Decl: d.ID(), Method: d.NextMethod()}

	out := decl.Method{
		Name:       m.Name,
		Access:     access,
		TypeParams: l.formals(path, m.TypeParams, scope),
	}
	for _, p := range m.Params {
		n, ok := l.node(path+"."+p.Name, p.Type, scope)
		if !ok {
			return
		}
		out.Params = append(out.Params, decl.Param{Name: p.Name, Type: n})
	}
	for _, r := range m.Returns {
		n, ok := l.node(path, r, scope)
		if !ok {
			return
		}
		out.Returns = append(out.Returns, n)
	}
	d.Method(out)
}
