package manifest

import (
	"bytes"
	"fmt"
	"os"

	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"gopkg.in/yaml.v3"
)

// QueryKind selects what a batch query asks
type QueryKind string

const (
	QueryAssignable QueryKind = "assignable"
	QueryChains     QueryKind = "chains"
	QueryVariance   QueryKind = "variance"
	QueryNarrow     QueryKind = "narrow"
)

// Query is one question in a batch file.
//
// Assignable and chains queries compare From (the value type) with To; narrow
// queries rewrite Type in Context; variance queries inspect Formal of Class.
// Names in types resolve in Scope, a dotted declaration path.
type Query struct {
	From    *Type     `yaml:"from,omitempty"`
	To      *Type     `yaml:"to,omitempty"`
	Type    *Type     `yaml:"type,omitempty"`
	Expect  *bool     `yaml:"expect,omitempty"`
	Name    string    `yaml:"name,omitempty"`
	Kind    QueryKind `yaml:"kind"`
	Scope   string    `yaml:"scope,omitempty"`
	Context string    `yaml:"context,omitempty"`
	Class   string    `yaml:"class,omitempty"`
	Formal  string    `yaml:"formal,omitempty"`
	Access  string    `yaml:"access,omitempty"`
}

// Label returns the query name, or a description when it has none
func (q Query) Label(i int) string {
	if q.Name != "" {
		return q.Name
	}
	return fmt.Sprintf("#%d %s", i+1, q.Kind)
}

// Validate checks that the fields the kind needs are present
func (q Query) Validate() error {
	if _, err := types.ParseAccess(q.Access); err != nil {
		return errors.InvalidInput(errors.PhaseParse, err.Error())
	}
	switch q.Kind {
	case QueryAssignable, QueryChains:
		if q.From == nil || q.To == nil {
			return errors.InvalidInput(errors.PhaseParse, string(q.Kind)+" query needs from and to")
		}
	case QueryVariance:
		if q.Class == "" || q.Formal == "" {
			return errors.InvalidInput(errors.PhaseParse, "variance query needs class and formal")
		}
	case QueryNarrow:
		if q.Type == nil || q.Context == "" {
			return errors.InvalidInput(errors.PhaseParse, "narrow query needs type and context")
		}
	default:
		return errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("unknown query kind %q", q.Kind))
	}
	return nil
}

// Batch is a file of queries
type Batch struct {
	Queries []Query `yaml:"queries"`
}

// ParseBatch decodes and validates a batch file
func ParseBatch(data []byte) (*Batch, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var b Batch
	if err := dec.Decode(&b); err != nil {
		return nil, errors.ParseFailed("batch", err)
	}
	for i, q := range b.Queries {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Label(i), err)
		}
	}
	return &b, nil
}

// LoadBatch reads and decodes a batch file
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read batch "+path, err)
	}
	return ParseBatch(data)
}
