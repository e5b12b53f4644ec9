package action

import (
	"fmt"
	"sort"
	"sync"

	"almpartners/dbdeploy/internal/util"
)

// Registry maps action names to their definitions. Registration replaces
// any prior definition of the same name, so project action files loaded
// after the built-ins can override them. Registration strictly precedes
// plan execution; the lock only guards the population phase.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{actions: map[string]*Action{}}
}

// Register inserts or replaces the action bound to its name. Last
// registration wins.
func (r *Registry) Register(a *Action) {
	name := util.NormalizeKey(a.Name)
	if err := util.ValidateActionName(name); err != nil {
		panic(fmt.Sprintf("action: invalid registration: %v", err))
	}
	if a.Run == nil && a.Steps == nil {
		panic(fmt.Sprintf("action: %q has neither a body nor steps", a.Name))
	}
	if a.Run != nil && a.Steps != nil {
		panic(fmt.Sprintf("action: %q has both a body and steps", a.Name))
	}
	a.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = a
}

// RegisterMulti registers a multiaction expanding to the given steps, in
// order. Referenced names are not resolved here; forward references across
// load order are legal and validated by Expand.
func (r *Registry) RegisterMulti(name, description string, steps []Step) {
	r.Register(&Action{
		Name:        name,
		Description: description,
		Steps:       steps,
	})
}

// Get returns the registered action for name.
func (r *Registry) Get(name string) (*Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[util.NormalizeKey(name)]
	return a, ok
}

// Describe returns the registered description for name.
func (r *Registry) Describe(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[util.NormalizeKey(name)]
	if !ok {
		return "", &UnknownActionError{Name: name, Available: r.names()}
	}
	return a.Description, nil
}

// Info is one row of the list surface.
type Info struct {
	Name        string
	Description string
}

// List returns all registered actions sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.actions))
	for _, a := range r.actions {
		infos = append(infos, Info{Name: a.Name, Description: a.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Expand resolves name into a flat ordered plan of leaf invocations.
// Multiactions are expanded depth-first in declaration order. A step's
// parameters are merged over those inherited from enclosing multiactions,
// innermost winning per key. Effective parameters are validated against
// each leaf's recognized option keys.
func (r *Registry) Expand(name string) (Plan, error) {
	return r.ExpandWith(name, nil)
}

// ExpandWith behaves like Expand with an outermost parameter set applied,
// as when an upgrade map invokes an action with overrides. Parameters from
// steps inside the expansion win over base per key.
func (r *Registry) ExpandWith(name string, base Params) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plan Plan
	onStack := map[string]bool{}
	var path []string

	var expand func(name string, inherited Params) error
	expand = func(name string, inherited Params) error {
		name = util.NormalizeKey(name)
		a, ok := r.actions[name]
		if !ok {
			return &UnknownActionError{Name: name, Available: r.names()}
		}
		if onStack[name] {
			return &CyclicActionError{Cycle: append(append([]string{}, path...), name)}
		}

		if a.Run != nil {
			if err := checkOptions(a, inherited); err != nil {
				return err
			}
			plan = append(plan, Invocation{Action: a, Params: inherited})
			return nil
		}

		onStack[name] = true
		path = append(path, name)
		for _, step := range a.Steps {
			if err := expand(step.Name, Merge(inherited, step.Params)); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onStack[name] = false
		return nil
	}

	if err := expand(name, base); err != nil {
		return nil, err
	}
	return plan, nil
}

func checkOptions(a *Action, params Params) error {
	for key := range params {
		if !a.Recognizes(key) {
			return fmt.Errorf("action: %q does not recognize option %q", a.Name, key)
		}
	}
	return nil
}

// names returns all registered names sorted. Callers must hold at least a
// read lock.
func (r *Registry) names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry backs the package-level registration API used by the
// built-in actions and project action files.
var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds an action to the default registry.
func Register(a *Action) { defaultRegistry.Register(a) }

// RegisterMulti adds a multiaction to the default registry.
func RegisterMulti(name, description string, steps []Step) {
	defaultRegistry.RegisterMulti(name, description, steps)
}

// Reset replaces the default registry with an empty one. Intended for use
// in tests only.
func Reset() { defaultRegistry = New() }
