package action

import (
	"fmt"
	"strings"
)

// UnknownActionError indicates a requested or referenced action name is not
// registered.
type UnknownActionError struct {
	// Name is the unresolved action name.
	Name string

	// Available lists the registered action names at the time of failure.
	Available []string
}

func (e *UnknownActionError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("action: no action %q found (no actions registered)", e.Name)
	}
	return fmt.Sprintf("action: no action %q found, available actions: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// CyclicActionError indicates multiaction expansion revisited a name
// already on the expansion stack.
type CyclicActionError struct {
	// Cycle holds the expansion path ending at the repeated name.
	Cycle []string
}

func (e *CyclicActionError) Error() string {
	return fmt.Sprintf("action: cyclic multiaction definition: %s", strings.Join(e.Cycle, " -> "))
}

// NotPermittedError indicates the allow/skip policy denied an action.
type NotPermittedError struct {
	// Name is the denied action name.
	Name string

	// Allowed is the effective allow policy at the time of denial.
	Allowed []string
}

func (e *NotPermittedError) Error() string {
	return fmt.Sprintf("action: %q is not permitted, allowed actions: %s",
		e.Name, strings.Join(e.Allowed, ", "))
}
