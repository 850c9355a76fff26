// Package filtergraph models ffmpeg filter graphs as labeled nodes and renders
// them into the textual -filter_complex syntax.
//
// Building a Graph is separate from running ffmpeg so that the exact graph an
// operation produces can be asserted in unit tests.
package filtergraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is a single ffmpeg filter with its already-formatted arguments.
// Args are joined with ':' when rendered, so "key=value" pairs and positional
// values can be mixed.
type Filter struct {
	Name string
	Args []string
}

// F is shorthand for constructing a Filter.
func F(name string, args ...string) Filter {
	return Filter{Name: name, Args: args}
}

// String renders the filter as name=arg1:arg2.
func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	return f.Name + "=" + strings.Join(f.Args, ":")
}

// Node is a linear chain of filters reading from Inputs and writing to Outputs.
// A node with a one-filter chain corresponds to a single graph vertex.
type Node struct {
	Inputs  []string
	Chain   []Filter
	Outputs []string
}

// String renders the node as [in1][in2]f1,f2[out1].
func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range n.Chain {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	for _, out := range n.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// Graph is an ordered set of nodes.
type Graph struct {
	Nodes []Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// Add appends a node whose chain reads inputs and writes a single output label.
func (g *Graph) Add(inputs []string, output string, chain ...Filter) *Graph {
	g.Nodes = append(g.Nodes, Node{Inputs: inputs, Chain: chain, Outputs: []string{output}})
	return g
}

// AddMulti appends a node with several output labels (split, concat with v+a).
func (g *Graph) AddMulti(inputs []string, outputs []string, chain ...Filter) *Graph {
	g.Nodes = append(g.Nodes, Node{Inputs: inputs, Chain: chain, Outputs: outputs})
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Outputs lists every output label produced by the graph, in node order.
func (g *Graph) Outputs() []string {
	var out []string
	for _, n := range g.Nodes {
		out = append(out, n.Outputs...)
	}
	return out
}

// Render returns the -filter_complex value.
func (g *Graph) Render() string {
	parts := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ";")
}

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return g.Render()
}

// KV formats a key=value filter argument.
func KV(key string, value any) string {
	return key + "=" + Value(value)
}

// Value formats a scalar the way ffmpeg expects it in filter arguments.
// Floats use the shortest representation with at most millisecond precision.
func Value(v any) string {
	switch x := v.(type) {
	case float64:
		return Seconds(x)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Seconds formats a time or scalar value rounded to three decimals without
// trailing zeros.
func Seconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

// Millis formats a duration in seconds as whole milliseconds.
func Millis(v float64) string {
	return strconv.FormatInt(int64(v*1000+0.5), 10)
}

// Escape applies both ffmpeg escaping levels to a free-form value so it can be
// embedded in a filter argument inside a filter graph description: first the
// option-value level (\ ' :), then the graph level (\ ' [ ] , ;).
func Escape(v string) string {
	return graphEscaper.Replace(valueEscaper.Replace(v))
}

var (
	valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)
