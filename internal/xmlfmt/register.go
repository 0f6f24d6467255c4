package xmlfmt

import (
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/registry"
)

// IncludeResolver loads the XML text referenced by an <include path="..."/>
// element. path is exactly the attribute value; resolving it relative to
// the including file's own directory (per §4.7) is the resolver's job, so
// this package stays filesystem-agnostic.
type IncludeResolver func(path string) (string, error)

// Register performs §4.7's registration pass: walk root's children, store
// every <BehaviorTree> definition by id together with its source text and
// byte range, record <TreeNodesModel> port metadata, and recursively
// process <include> elements through resolve. main_tree_to_execute is
// recorded on reg if present.
func Register(reg *registry.Registry, source string, resolve IncludeResolver) error {
	root, err := parseDocument(source)
	if err != nil {
		return err
	}
	if root.Tag != "root" {
		return bterr.Parsef("expected root element <root>, got <%s>", root.Tag)
	}
	if mainID, ok := root.Attr("main_tree_to_execute"); ok {
		reg.SetMainTreeID(mainID)
	}
	return registerChildren(reg, root, source, resolve)
}

func registerChildren(reg *registry.Registry, root *Element, source string, resolve IncludeResolver) error {
	for _, kid := range root.Kids {
		switch kid.Tag {
		case "BehaviorTree":
			id, ok := kid.Attr("ID")
			if !ok {
				return bterr.Parsef("<BehaviorTree> missing required ID attribute")
			}
			reg.SetTreeDef(id, registry.TreeDef{Source: source, Start: kid.Start, End: kid.End})
		case "TreeNodesModel":
			registerTreeNodesModel(reg, kid)
		case "include":
			path, ok := kid.Attr("path")
			if !ok {
				return bterr.Parsef("<include> missing required path attribute")
			}
			if resolve == nil {
				return bterr.Parsef("<include path=%q> requires file I/O, none configured", path)
			}
			included, err := resolve(path)
			if err != nil {
				return bterr.Parsef("including %q: %v", path, err)
			}
			if err := Register(reg, included, resolve); err != nil {
				return err
			}
		}
	}
	return nil
}

// registerTreeNodesModel parses a <TreeNodesModel> element's child node
// descriptions (each an <Action ID="..."> etc. with <input_port>/
// <output_port>/<inout_port> children) into supplementary port.List
// metadata per id (§4.7).
func registerTreeNodesModel(reg *registry.Registry, model *Element) {
	for _, nodeEl := range model.Kids {
		id, ok := nodeEl.Attr("ID")
		if !ok {
			continue
		}
		var ports port.List
		for _, portEl := range nodeEl.Kids {
			name, ok := portEl.Attr("name")
			if !ok {
				continue
			}
			typeName, _ := portEl.Attr("type")
			def, _ := portEl.Attr("default")
			desc, _ := portEl.Attr("description")
			switch portEl.Tag {
			case "input_port":
				ports = append(ports, port.Input(typeName, name, def, desc))
			case "output_port":
				ports = append(ports, port.Output(typeName, name, desc))
			case "inout_port":
				ports = append(ports, port.InOutPort(typeName, name, def, desc))
			}
		}
		reg.SetTreeNodesModel(id, ports)
	}
}
