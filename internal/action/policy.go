package action

import "almpartners/dbdeploy/internal/util"

// AllowAll is the sentinel accepted in the allow list to permit every
// action not explicitly skipped.
const AllowAll = "ALL"

// Allowed evaluates the allow/skip policy for a single action name.
// When allowed contains the AllowAll sentinel, every action passes except
// those present in skipped. Otherwise an action passes only when it is a
// member of allowed and not of skipped; skip takes precedence over allow.
func Allowed(name string, allowed, skipped []string) bool {
	name = util.NormalizeKey(name)

	for _, s := range skipped {
		if util.NormalizeKey(s) == name {
			return false
		}
	}

	for _, a := range allowed {
		if a == AllowAll || util.NormalizeKey(a) == name {
			return true
		}
	}
	return false
}

// CheckPolicy returns a NotPermittedError when the policy denies name.
func CheckPolicy(name string, allowed, skipped []string) error {
	if !Allowed(name, allowed, skipped) {
		return &NotPermittedError{Name: name, Allowed: allowed}
	}
	return nil
}
