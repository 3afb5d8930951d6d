package types

import "sync"

// NodeID is the arena index of an interned node
type NodeID uint32

// Pool interns structurally equal nodes to one canonical instance and id.
// Interning is safe for concurrent use; a key always maps to the same id.
type Pool struct {
	ids   map[string]NodeID
	nodes []Node
	mu    sync.RWMutex
}

// NewPool creates an empty pool
func NewPool() *Pool {
	return &Pool{ids: make(map[string]NodeID)}
}

// Intern returns the canonical instance of n and its id
func (p *Pool) Intern(n Node) (Node, NodeID) {
	key := n.Key()

	p.mu.RLock()
	id, ok := p.ids[key]
	if ok {
		canon := p.nodes[id]
		p.mu.RUnlock()
		return canon, id
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.ids[key]; ok {
		return p.nodes[id], id
	}
	id = NodeID(len(p.nodes))
	p.nodes = append(p.nodes, n)
	p.ids[key] = id
	return n, id
}

// ID returns the id of n, interning it if needed
func (p *Pool) ID(n Node) NodeID {
	_, id := p.Intern(n)
	return id
}

// Node returns the node stored under id
func (p *Pool) Node(id NodeID) (Node, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(id) >= len(p.nodes) {
		return nil, false
	}
	return p.nodes[id], true
}

// Len returns the number of distinct nodes
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// Terminal interns a terminal node for ref
func (p *Pool) Terminal(ref Ref) Node {
	n, _ := p.Intern(NewTerminal(ref))
	return n
}

// Class interns a terminal class node
func (p *Pool) Class(id DeclID, args ...Node) Node {
	n, _ := p.Intern(NewParameterized(p.Terminal(ClassRef{Decl: id}), args...))
	return n
}
