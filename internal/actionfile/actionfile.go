// Package actionfile loads project-defined action files: YAML documents
// declaring custom multiactions composed from already-registered actions.
// Files are loaded after the built-ins, in configured order, so a project
// can override a built-in or an earlier file by reusing its name.
package actionfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/util"
)

type file struct {
	Actions []definition `yaml:"actions"`
}

type definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []step `yaml:"steps"`
}

// step accepts either a bare action name or a mapping with the name and
// parameter overrides.
type step struct {
	Name   string
	Params action.Params
}

func (s *step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&s.Name)
	case yaml.MappingNode:
		var m struct {
			Action string        `yaml:"action"`
			Params action.Params `yaml:"params"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.Action == "" {
			return fmt.Errorf("actionfile: step mapping is missing the action key")
		}
		s.Name = m.Action
		s.Params = m.Params
		return nil
	default:
		return fmt.Errorf("actionfile: step must be an action name or a mapping")
	}
}

// Load reads one action file and registers its definitions into reg.
// Definitions replace any same-named action already registered.
func Load(reg *action.Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("actionfile: failed to read %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("actionfile: failed to parse %s: %w", path, err)
	}

	for _, def := range f.Actions {
		if def.Name == "" {
			return fmt.Errorf("actionfile: %s declares an action without a name", path)
		}
		if len(def.Steps) == 0 {
			return fmt.Errorf("actionfile: action %q in %s has no steps", def.Name, path)
		}
		if err := util.ValidateActionName(def.Name); err != nil {
			return fmt.Errorf("actionfile: %s: %w", path, err)
		}
		steps := make([]action.Step, len(def.Steps))
		for i, s := range def.Steps {
			steps[i] = action.Step{Name: s.Name, Params: s.Params}
		}
		reg.RegisterMulti(def.Name, def.Description, steps)
	}
	return nil
}

// LoadAll loads the given action files in order.
func LoadAll(reg *action.Registry, paths []string) error {
	for _, path := range paths {
		if err := Load(reg, path); err != nil {
			return err
		}
	}
	return nil
}
