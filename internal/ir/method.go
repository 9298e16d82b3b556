package ir

import "fmt"

// MethodKind is the entry-point annotation of a declared function.
type MethodKind int

const (
	Query MethodKind = iota + 1
	Update
	Init
	PreUpgrade
	PostUpgrade
	Heartbeat
	InspectMessage
)

var methodKindNames = map[MethodKind]string{
	Query:          "query",
	Update:         "update",
	Init:           "init",
	PreUpgrade:     "pre_upgrade",
	PostUpgrade:    "post_upgrade",
	Heartbeat:      "heartbeat",
	InspectMessage: "inspect_message",
}

// LifecycleKinds are the kinds that admit at most one declaration.
var LifecycleKinds = []MethodKind{Init, PreUpgrade, PostUpgrade, Heartbeat, InspectMessage}

func (k MethodKind) String() string {
	if name, ok := methodKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MethodKind(%d)", int(k))
}

// IsLifecycle reports whether k is one of LifecycleKinds.
func (k MethodKind) IsLifecycle() bool {
	return k != Query && k != Update
}

// ParseMethodKind parses the front-end spelling of a method kind.
func ParseMethodKind(s string) (MethodKind, error) {
	for k, name := range methodKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown method kind %q", s)
}

// Param is a named method parameter.
type Param struct {
	Name string
	Type TypeNode
}

// Method is a declared entry point.
type Method struct {
	Name   string
	Kind   MethodKind
	Params []Param
	Return TypeNode // nil when the method returns nothing
	Async  bool
	Guard  string // optional guard function name
}

// StableMap declares a persistent ordered byte map addressed by ID.
type StableMap struct {
	Name  string
	ID    uint8
	Key   TypeNode
	Value TypeNode
}

// Program is the front end's output for one module, in declaration order.
type Program struct {
	Types      []TypeNode
	Methods    []Method
	Guards     []string
	StableMaps []StableMap
}
