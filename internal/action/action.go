// Package action implements the action registry: named deployment steps,
// composite multiactions, expansion into flat execution plans, and the
// allow/skip policy gate.
package action

import (
	"context"
	"fmt"

	"almpartners/dbdeploy/internal/dbcontext"
)

// Func is the body of a leaf action. It receives the invocation-scoped
// execution state and the effective parameter overrides for this step.
type Func func(ctx context.Context, exec *dbcontext.Context, params Params) error

// Action is a registered executable unit. Exactly one of Run and Steps is
// set: leaf actions carry a body, multiactions carry an ordered step list.
type Action struct {
	// Name is the unique registry key, also used on the command line.
	Name string

	// Description is shown by the list surface.
	Description string

	// AffectsDatabase marks actions that mutate the target database.
	// Such actions require confirmation and participate in transaction
	// handling. For multiactions it is derived from the steps at
	// expansion time and the field itself is ignored.
	AffectsDatabase bool

	// Options enumerates the parameter keys the action recognizes.
	// Effective parameters are validated against it when the plan is
	// built, not when the action runs.
	Options []string

	// Run executes a leaf action. Nil for multiactions.
	Run Func

	// Steps is the ordered expansion of a multiaction. Nil for leaves.
	Steps []Step
}

// Recognizes reports whether the action declares the named option key.
func (a *Action) Recognizes(option string) bool {
	for _, o := range a.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Step references another action by name with optional parameter overrides.
type Step struct {
	Name   string
	Params Params
}

// Invocation is one resolved leaf-action call in an execution plan.
type Invocation struct {
	Action *Action
	Params Params
}

// Plan is an ordered sequence of resolved leaf invocations. It is built
// once per top-level request and not mutated during execution.
type Plan []Invocation

// AffectsDatabase reports whether any step of the plan mutates the target
// database.
func (p Plan) AffectsDatabase() bool {
	for _, inv := range p {
		if inv.Action.AffectsDatabase {
			return true
		}
	}
	return false
}

// Names returns the action names of the plan in execution order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, inv := range p {
		names[i] = inv.Action.Name
	}
	return names
}

// Params carries per-invocation parameter overrides.
type Params map[string]any

// Merge returns a new Params with overlay applied over base. Overlay wins
// per key; neither input is mutated.
func Merge(base, overlay Params) Params {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	merged := make(Params, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// String returns the string value for key, or def when absent.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Bool returns the boolean value for key, or def when absent or not a bool.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// StringSlice returns the value for key as a string slice. YAML and JSON
// decoding produce []any, which is converted element-wise.
func (p Params) StringSlice(key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	default:
		return nil
	}
}
