package xmlfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// canonicalTypeNames translates the engine's internal port type names to
// the visualizer-canonical spellings <TreeNodesModel> expects (§6.5).
var canonicalTypeNames = map[string]string{
	"int":    "int",
	"int32":  "int",
	"int64":  "int64_t",
	"float":  "double",
	"float64": "double",
	"bool":   "bool",
	"string": "std::string",
}

func canonicalType(t string) string {
	if c, ok := canonicalTypeNames[t]; ok {
		return c
	}
	return t
}

// ExportOptions controls §6.5 XML export.
type ExportOptions struct {
	// Metadata, when true, adds _uid and _fullpath attributes to every
	// emitted element (the wire-protocol "T" reply's format).
	Metadata bool
	MainTreeID string
}

// Export serializes a built tree back into the engine's own XML format,
// with an appended <TreeNodesModel> describing every distinct behavior id
// encountered (§6.5).
func Export(root *treenode.Node, opts ExportOptions) string {
	var b strings.Builder
	b.WriteString(`<root BTCPP_format="4"`)
	if opts.MainTreeID != "" {
		fmt.Fprintf(&b, ` main_tree_to_execute=%q`, opts.MainTreeID)
	}
	b.WriteString(">\n")
	b.WriteString(`  <BehaviorTree ID="MainTree">` + "\n")
	writeNode(&b, root, 2, opts)
	b.WriteString("  </BehaviorTree>\n")

	models := collectModels(root)
	if len(models) > 0 {
		b.WriteString("  <TreeNodesModel>\n")
		ids := make([]string, 0, len(models))
		for id := range models {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			writeModel(&b, id, models[id])
		}
		b.WriteString("  </TreeNodesModel>\n")
	}
	b.WriteString("</root>\n")
	return b.String()
}

func writeNode(b *strings.Builder, n *treenode.Node, depth int, opts ExportOptions) {
	indent := strings.Repeat("  ", depth)
	d := n.Data
	fmt.Fprintf(b, "%s<%s", indent, d.ID)
	if d.Name != "" && d.Name != d.ID {
		fmt.Fprintf(b, ` name=%q`, d.Name)
	}
	for _, r := range d.Remappings {
		fmt.Fprintf(b, ` %s=%q`, r.Port, r.Target)
	}
	for attr, expr := range d.PreConditions {
		fmt.Fprintf(b, ` %s=%q`, attr, expr)
	}
	for attr, expr := range d.PostConditions {
		fmt.Fprintf(b, ` %s=%q`, attr, expr)
	}
	if opts.Metadata {
		fmt.Fprintf(b, ` _uid="%d" _fullpath=%q`, d.UID, d.Path)
	}
	if len(n.Children) == 0 {
		b.WriteString("/>\n")
		return
	}
	b.WriteString(">\n")
	for _, c := range n.Children {
		writeNode(b, c, depth+1, opts)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, d.ID)
}

func collectModels(root *treenode.Node) map[string]port.List {
	models := make(map[string]port.List)
	root.Walk(func(n *treenode.Node) {
		if _, ok := models[n.Data.ID]; ok {
			return
		}
		models[n.Data.ID] = n.Behavior.ProvidedPorts()
	})
	return models
}

func writeModel(b *strings.Builder, id string, ports port.List) {
	fmt.Fprintf(b, "    <Action ID=%q>\n", id)
	for _, p := range ports {
		tag := p.Direction.String()
		fmt.Fprintf(b, "      <%s name=%q type=%q", tag, p.Name, canonicalType(p.TypeName))
		if p.Default != "" {
			fmt.Fprintf(b, " default=%q", p.Default)
		}
		if p.Description != "" {
			fmt.Fprintf(b, " description=%q", p.Description)
		}
		b.WriteString("/>\n")
	}
	b.WriteString("    </Action>\n")
}
