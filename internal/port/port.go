// Package port declares the static port metadata (§3.3 of the spec) used by
// both the XML parser (to validate attributes) and model export.
package port

import "fmt"

// Direction is the data-flow direction of a port.
type Direction uint8

const (
	In Direction = iota
	Out
	InOut
)

func (d Direction) String() string {
	switch d {
	case In:
		return "input_port"
	case Out:
		return "output_port"
	case InOut:
		return "inout_port"
	default:
		return "unknown_port"
	}
}

// Reserved holds the set of attribute names a port may never be named,
// since the parser treats them as pre/post condition hooks or directives.
var Reserved = map[string]bool{
	"name":       true,
	"ID":         true,
	"_autoremap": true,
	"_failureIf": true,
	"_successIf": true,
	"_skipIf":    true,
	"_while":     true,
	"_onHalted":  true,
	"_onFailure": true,
	"_onSuccess": true,
	"_post":      true,
}

// Port is an immutable description of one declared port of a Behavior.
type Port struct {
	Direction   Direction
	TypeName    string
	Name        string
	Default     string
	Description string
}

// Validate checks the port-name shape rule from §3.3: non-empty, begins with
// a letter (or '@' then a letter for a global-blackboard pointer), and does
// not collide with the reserved attribute set.
func (p Port) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("port name must not be empty")
	}
	if Reserved[p.Name] {
		return fmt.Errorf("port name %q collides with a reserved attribute", p.Name)
	}
	name := p.Name
	if name[0] == '@' {
		name = name[1:]
		if name == "" {
			return fmt.Errorf("port name %q must have a letter after '@'", p.Name)
		}
	}
	c := name[0]
	if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		return fmt.Errorf("port name %q must begin with a letter", p.Name)
	}
	return nil
}

// List is an ordered collection of Port declarations for one Behavior.
type List []Port

// Lookup returns the Port declared under name, if any.
func (l List) Lookup(name string) (Port, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Input is a convenience constructor for an In port with a default value.
func Input(typeName, name, def, desc string) Port {
	return Port{Direction: In, TypeName: typeName, Name: name, Default: def, Description: desc}
}

// Output is a convenience constructor for an Out port.
func Output(typeName, name, desc string) Port {
	return Port{Direction: Out, TypeName: typeName, Name: name, Description: desc}
}

// InOutPort is a convenience constructor for an InOut port.
func InOutPort(typeName, name, def, desc string) Port {
	return Port{Direction: InOut, TypeName: typeName, Name: name, Default: def, Description: desc}
}
