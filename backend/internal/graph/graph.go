package graph

import (
	"encoding/json"
	"sort"
	"strings"
)

// Edge is one labeled connection between two entity nodes
type Edge struct {
	Source   string
	Target   string
	Relation string
}

// edgeKey identifies an edge for set semantics. Endpoints are folded to
// lower case so "Alice" and "alice" collapse to one node.
type edgeKey struct {
	source   string
	target   string
	relation string
}

// KnowledgeGraph is an explicit labeled multigraph for one user. Node
// labels are case-preserved (first writer wins) and compared
// case-insensitively. Duplicate (source, target, relation) edges are
// idempotent.
type KnowledgeGraph struct {
	nodes map[string]string // lower-cased label -> original label
	edges map[edgeKey]Edge
}

// New creates an empty knowledge graph
func New() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes: make(map[string]string),
		edges: make(map[edgeKey]Edge),
	}
}

// AddEdge inserts an edge and both endpoint nodes. Re-adding an
// existing edge is a no-op. Returns true if the edge was new.
func (g *KnowledgeGraph) AddEdge(source, target, relation string) bool {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return false
	}
	if relation == "" {
		relation = "related"
	}

	g.addNode(source)
	g.addNode(target)

	key := edgeKey{
		source:   strings.ToLower(source),
		target:   strings.ToLower(target),
		relation: relation,
	}
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = Edge{Source: g.nodes[key.source], Target: g.nodes[key.target], Relation: relation}
	return true
}

func (g *KnowledgeGraph) addNode(label string) {
	key := strings.ToLower(label)
	if _, ok := g.nodes[key]; !ok {
		g.nodes[key] = label
	}
}

// NodeCount returns the number of distinct nodes
func (g *KnowledgeGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges
func (g *KnowledgeGraph) EdgeCount() int {
	return len(g.edges)
}

// MatchNodes returns the lower-cased keys of nodes whose label appears in
// the text or contains the text, compared case-insensitively.
func (g *KnowledgeGraph) MatchNodes(text string) map[string]bool {
	textLower := strings.ToLower(strings.TrimSpace(text))
	found := make(map[string]bool)
	if textLower == "" {
		return found
	}
	for key := range g.nodes {
		if strings.Contains(textLower, key) || strings.Contains(key, textLower) {
			found[key] = true
		}
	}
	return found
}

// Facts renders every edge incident to a node matched by text as a
// "Fact: <source> <relation> <target>" line, deduplicated and sorted for
// stable output. Returns nil when nothing matches.
func (g *KnowledgeGraph) Facts(text string) []string {
	matched := g.MatchNodes(text)
	if len(matched) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var facts []string
	for key, edge := range g.edges {
		if !matched[key.source] && !matched[key.target] {
			continue
		}
		line := "Fact: " + edge.Source + " " + edge.Relation + " " + edge.Target
		if seen[line] {
			continue
		}
		seen[line] = true
		facts = append(facts, line)
	}
	sort.Strings(facts)
	return facts
}

// nodeLinkDoc is the node-link interchange format used for persistence,
// compatible with the common {nodes: [{id}], links: [{source, target, ...}]}
// layout.
type nodeLinkDoc struct {
	Directed   bool                   `json:"directed"`
	Multigraph bool                   `json:"multigraph"`
	Graph      map[string]interface{} `json:"graph"`
	Nodes      []nodeLinkNode         `json:"nodes"`
	Links      []nodeLinkEdge         `json:"links"`
}

type nodeLinkNode struct {
	ID string `json:"id"`
}

type nodeLinkEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// MarshalNodeLink serializes the graph to the node-link format
func (g *KnowledgeGraph) MarshalNodeLink() (json.RawMessage, error) {
	doc := nodeLinkDoc{
		Graph: map[string]interface{}{},
		Nodes: make([]nodeLinkNode, 0, len(g.nodes)),
		Links: make([]nodeLinkEdge, 0, len(g.edges)),
	}

	labels := make([]string, 0, len(g.nodes))
	for _, label := range g.nodes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		doc.Nodes = append(doc.Nodes, nodeLinkNode{ID: label})
	}

	for _, edge := range g.edges {
		doc.Links = append(doc.Links, nodeLinkEdge{
			Source:   edge.Source,
			Target:   edge.Target,
			Relation: edge.Relation,
		})
	}
	sort.Slice(doc.Links, func(i, j int) bool {
		a, b := doc.Links[i], doc.Links[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Relation < b.Relation
	})

	return json.Marshal(doc)
}

// UnmarshalNodeLink loads the graph from the node-link format, replacing
// current contents
func (g *KnowledgeGraph) UnmarshalNodeLink(data json.RawMessage) error {
	var doc nodeLinkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	g.nodes = make(map[string]string)
	g.edges = make(map[edgeKey]Edge)
	for _, n := range doc.Nodes {
		if n.ID != "" {
			g.addNode(n.ID)
		}
	}
	for _, l := range doc.Links {
		g.AddEdge(l.Source, l.Target, l.Relation)
	}
	return nil
}
