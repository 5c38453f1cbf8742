// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package multiversion

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// NodeID identifies a node in a Graph.
// It is always scoped to a specific Graph, and is an index of the Nodes slice
// in that Graph.
type NodeID int

// Node is a concrete version of a package in a resolved Graph, together
// with the features selected for it.
type Node struct {
	Name     string
	Version  Version
	Features []string
}

func (n Node) String() string {
	s := n.Name + "@" + n.Version.String()
	for _, f := range n.Features {
		s += " +" + f
	}
	return s
}

// Compare orders nodes by name and then version. Nodes of one graph are
// unique by name and version.
func (n Node) Compare(o Node) int {
	if c := strings.Compare(n.Name, o.Name); c != 0 {
		return c
	}
	return n.Version.Compare(o.Version)
}

// GraphEdge represents a resolution From a dependent Node To a dependency
// Node, satisfying the dependent's Requirement.
type GraphEdge struct {
	From        NodeID
	To          NodeID
	Requirement Range
}

// Graph holds the concrete packages selected by a resolution.
type Graph struct {
	// The first element in the slice is the root node.
	// NodeID is the index into this slice.
	Nodes []Node

	Edges []GraphEdge
}

// BuildGraph converts a solution, mapping each selected package identity to
// its version, into a Graph of concrete versions. Buckets and features
// selected at the same version of a name share a node. Proxies are
// followed to the bucket or feature they selected. The root is the node of
// root.
func BuildGraph(p Provider, root Package, solution map[Package]Version) (*Graph, error) {
	rootVersion, ok := solution[root]
	if !ok {
		return nil, fmt.Errorf("root %v not in solution", root)
	}
	type key struct {
		name string
		v    Version
	}
	g := &Graph{}
	ids := make(map[key]NodeID)
	node := func(name string, v Version) NodeID {
		k := key{name, v}
		if id, ok := ids[k]; ok {
			return id
		}
		id := g.AddNode(name, v)
		ids[k] = id
		return id
	}
	node(root.Name(), rootVersion)

	sel := make([]Package, 0, len(solution))
	for pkg := range solution {
		if pkg.Kind != ProxyKind {
			sel = append(sel, pkg)
		}
	}
	slices.SortFunc(sel, Package.Compare)
	for _, pkg := range sel {
		id := node(pkg.Name(), solution[pkg])
		if pkg.Kind == FeatureKind {
			g.Nodes[id].Features = append(g.Nodes[id].Features, pkg.Feature)
		}
	}

	type link struct{ from, to NodeID }
	seen := make(map[link]bool)
	for _, pkg := range sel {
		v := solution[pkg]
		from := ids[key{pkg.Name(), v}]
		deps, ok := p.Dependencies(pkg, v)
		if !ok {
			return nil, fmt.Errorf("%v@%v: dependencies unknown", pkg, v)
		}
		for _, e := range deps {
			dep, err := follow(p, e, solution)
			if err != nil {
				return nil, fmt.Errorf("%v@%v: %w", pkg, v, err)
			}
			dv, ok := solution[dep.Package]
			if !ok {
				return nil, fmt.Errorf("%v@%v: dependency %v not in solution", pkg, v, dep.Package)
			}
			to := ids[key{dep.Package.Name(), dv}]
			if to == from || seen[link{from, to}] {
				continue
			}
			seen[link{from, to}] = true
			if err := g.AddEdge(from, to, dep.Range); err != nil {
				return nil, err
			}
		}
	}
	g.Canon()
	return g, nil
}

// follow resolves a proxy edge to the edge its selected version brings in.
func follow(p Provider, e Edge, solution map[Package]Version) (Edge, error) {
	if e.Package.Kind != ProxyKind {
		return e, nil
	}
	v, ok := solution[e.Package]
	if !ok {
		return Edge{}, fmt.Errorf("dependency %v not in solution", e.Package)
	}
	deps, ok := p.Dependencies(e.Package, v)
	if !ok || len(deps) != 1 {
		return Edge{}, fmt.Errorf("%v@%v: want exactly one dependency", e.Package, v)
	}
	return deps[0], nil
}

// AddNode inserts a node into the graph, not connected to anything. The
// returned ID is required to add edges.
func (g *Graph) AddNode(name string, v Version) NodeID {
	g.Nodes = append(g.Nodes, Node{Name: name, Version: v})
	return NodeID(len(g.Nodes) - 1)
}

// AddEdge inserts an edge in the graph between the two provided nodes.
func (g *Graph) AddEdge(from, to NodeID, req Range) error {
	if !g.contains(from) {
		return fmt.Errorf("node not in graph: %v", from)
	}
	if !g.contains(to) {
		return fmt.Errorf("node not in graph: %v", to)
	}
	g.Edges = append(g.Edges, GraphEdge{From: from, To: to, Requirement: req})
	return nil
}

// contains checks if a provided NodeID is actually in the graph.
func (g *Graph) contains(n NodeID) bool {
	return n >= 0 && int(n) < len(g.Nodes)
}

// Canon converts the graph (in place) into a canonical representation,
// suitable for comparing with other graphs: the root stays first, the other
// nodes are sorted, features and edges are sorted.
func (g *Graph) Canon() {
	for _, n := range g.Nodes {
		slices.Sort(n.Features)
	}
	if len(g.Nodes) == 0 {
		return
	}
	ids := make([]int, len(g.Nodes)-1)
	for i := range ids {
		ids[i] = i + 1
	}
	slices.SortFunc(ids, func(i, j int) int { return g.Nodes[i].Compare(g.Nodes[j]) })
	oldToNew := make([]int, len(g.Nodes))
	nn := make([]Node, len(g.Nodes))
	nn[0] = g.Nodes[0]
	for i, old := range ids {
		oldToNew[old] = i + 1
		nn[i+1] = g.Nodes[old]
	}
	g.Nodes = nn
	for i, e := range g.Edges {
		e.From = NodeID(oldToNew[e.From])
		e.To = NodeID(oldToNew[e.To])
		g.Edges[i] = e
	}
	slices.SortFunc(g.Edges, func(a, b GraphEdge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
}

// String produces a text representation of the graph.
// The graph is represented by a spanning tree computed using the first edge
// reaching each node. Other edges to a node shared by several dependents
// are represented using labels.
func (g *Graph) String() string {
	var b strings.Builder
	if len(g.Nodes) == 0 {
		return b.String()
	}

	// Get for each node its unique creator and count of dependents.
	creator := make(map[NodeID]NodeID, len(g.Nodes))
	dependents := make([]int, len(g.Nodes))
	// The root creates itself and counts as its own dependent, so that a
	// cycle back to it gets labeled like any other shared node.
	creator[0] = 0
	dependents[0] = 1
	for _, e := range g.Edges {
		dependents[e.To]++
		if _, ok := creator[e.To]; !ok && e.To != e.From {
			creator[e.To] = e.From
		}
	}

	type node struct {
		label    int
		nid      NodeID
		n        *Node
		req      Range
		children []*node
	}
	nodes := make([]*node, len(g.Nodes))
	label := 0
	for i := range g.Nodes {
		id := NodeID(i)
		nodes[id] = &node{nid: id, n: &g.Nodes[i]}
		if dependents[id] > 1 {
			label++
			nodes[id].label = label
		}
	}
	seen := make([]bool, len(g.Nodes))
	for _, e := range g.Edges {
		nf, nt := nodes[e.From], nodes[e.To]
		if e.From != creator[e.To] || seen[e.To] || e.From == e.To {
			nt = &node{label: nt.label}
		}
		if e.From == creator[e.To] {
			seen[e.To] = true
		}
		nt.req = e.Requirement
		nf.children = append(nf.children, nt)
	}

	seen = make([]bool, len(g.Nodes))
	var walk func(n *node, prefix1, prefix2 string)
	walk = func(n *node, prefix1, prefix2 string) {
		seen[n.nid] = true
		fmt.Fprint(&b, prefix1)
		if n.n == nil {
			fmt.Fprintf(&b, "$%d@%s\n", n.label, n.req)
			return
		}
		if n.label > 0 {
			fmt.Fprintf(&b, "%d: ", n.label)
		}
		if prefix1 == "" {
			// Root has no requirement.
			fmt.Fprintf(&b, "%s %s", n.n.Name, n.n.Version)
		} else {
			fmt.Fprintf(&b, "%s@%s %s", n.n.Name, n.req, n.n.Version)
		}
		for _, f := range n.n.Features {
			fmt.Fprintf(&b, " +%s", f)
		}
		b.WriteString("\n")
		for i, c := range n.children {
			p1 := "├─ "
			p2 := "│  "
			if i == len(n.children)-1 {
				p1 = "└─ "
				p2 = "   "
			}
			walk(c, prefix2+p1, prefix2+p2)
		}
	}
	walk(nodes[0], "", "")
	for i, ok := range seen {
		if !ok {
			fmt.Fprintf(&b, "ORPHAN: %s\n", g.Nodes[i])
		}
	}
	return b.String()
}
