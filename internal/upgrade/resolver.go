package upgrade

import (
	"fmt"

	"golang.org/x/mod/semver"

	"almpartners/dbdeploy/internal/action"
)

// NoUpgradePathError indicates no sequence of upgrade entries leads from
// the installed version to the target.
type NoUpgradePathError struct {
	Installed string
	Target    string
	Reason    string
}

func (e *NoUpgradePathError) Error() string {
	installed := e.Installed
	if installed == "" {
		installed = "(none)"
	}
	return fmt.Sprintf("upgrade: no path from installed version %s to %s: %s",
		installed, e.Target, e.Reason)
}

// Resolve selects the ordered subsequence of upgrade entries whose tags
// fall in the half-open interval (installed, target].
//
// installed may be empty, meaning the database has never been stamped and
// every tag up to target applies. target may be empty, meaning upgrade to
// the highest tag present. A non-empty target must name a tag in the map;
// a target below the installed version is an error, since downgrades are
// not expressible through upgrade maps.
func Resolve(m *Map, installed, target string) ([]Entry, error) {
	entries := m.Entries()
	if len(entries) == 0 {
		return nil, &NoUpgradePathError{Installed: installed, Target: target,
			Reason: "upgrade map is empty"}
	}

	if installed != "" {
		v, err := canonicalTag(installed)
		if err != nil {
			return nil, fmt.Errorf("upgrade: installed version: %w", err)
		}
		installed = v
	}

	if target == "" {
		target = entries[len(entries)-1].Tag
	} else {
		v, err := canonicalTag(target)
		if err != nil {
			return nil, fmt.Errorf("upgrade: target version: %w", err)
		}
		target = v
		if !hasTag(entries, target) {
			return nil, &NoUpgradePathError{Installed: installed, Target: target,
				Reason: "target version is not present in the upgrade map"}
		}
	}

	if installed != "" && semver.Compare(target, installed) < 0 {
		return nil, &NoUpgradePathError{Installed: installed, Target: target,
			Reason: "target version is lower than the installed version"}
	}

	var selected []Entry
	for _, e := range entries {
		if installed != "" && semver.Compare(e.Tag, installed) <= 0 {
			continue
		}
		if semver.Compare(e.Tag, target) > 0 {
			break
		}
		selected = append(selected, e)
	}

	if len(selected) == 0 {
		return nil, &NoUpgradePathError{Installed: installed, Target: target,
			Reason: "database is already up to date"}
	}
	return selected, nil
}

// Plan expands the selected entries through the registry into a single
// flat execution plan spanning all selected versions, in tag order.
func Plan(entries []Entry, reg *action.Registry) (action.Plan, error) {
	var plan action.Plan
	for _, e := range entries {
		for _, inv := range e.Actions {
			sub, err := reg.ExpandWith(inv.Name, inv.Params)
			if err != nil {
				return nil, err
			}
			plan = append(plan, sub...)
		}
	}
	return plan, nil
}

func hasTag(entries []Entry, tag string) bool {
	for _, e := range entries {
		if e.Tag == tag {
			return true
		}
	}
	return false
}
