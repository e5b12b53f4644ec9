// Package upgrade resolves which version-tagged action lists must run to
// bring a database from its installed version to a target version, using
// semantic-version ordering.
package upgrade

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/config"
)

// Invocation is one action reference in an upgrade entry: a name plus
// optional parameter overrides.
type Invocation struct {
	Name   string
	Params action.Params
}

// Entry is the ordered action list registered under one version tag.
type Entry struct {
	Tag     string
	Actions []Invocation
}

// Map holds all version-tagged upgrade entries, sorted ascending by
// semantic-version precedence.
type Map struct {
	entries []Entry
}

// Entries returns the tags and their action lists in ascending version
// order.
func (m *Map) Entries() []Entry { return m.entries }

// LoadMap reads an upgrade map from a JSON, JSONC, or YAML file. The
// document is a mapping from version tag to a list of action references;
// each reference is either a plain action name or a [name, params] pair:
//
//	{
//	    "v1.0.0": ["deploy"],
//	    "v1.1.0": [["deploy", {"files": ["patch.sql"]}], "data"]
//	}
//
// Malformed version tags, duplicate tags, and empty action lists are
// load-time errors.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upgrade: failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	case ".jsonc":
		data = config.StripComments(data)
	default:
		return nil, fmt.Errorf("upgrade: %s: unsupported format (want .json, .jsonc, .yaml or .yml)", path)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("upgrade: failed to parse %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("upgrade: %s: empty upgrade map", path)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("upgrade: %s: document must map version tags to action lists", path)
	}

	m := &Map{}
	seen := map[string]bool{}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, valueNode := doc.Content[i], doc.Content[i+1]

		tag, err := canonicalTag(keyNode.Value)
		if err != nil {
			return nil, fmt.Errorf("upgrade: %s: %w", path, err)
		}
		if seen[tag] {
			return nil, fmt.Errorf("upgrade: %s: duplicate version tag %s", path, tag)
		}
		seen[tag] = true

		actions, err := parseActionList(valueNode)
		if err != nil {
			return nil, fmt.Errorf("upgrade: %s: version %s: %w", path, tag, err)
		}
		if len(actions) == 0 {
			return nil, fmt.Errorf("upgrade: %s: version %s has no actions", path, tag)
		}

		m.entries = append(m.entries, Entry{Tag: tag, Actions: actions})
	}

	sortEntries(m.entries)
	return m, nil
}

// canonicalTag validates a version tag and normalizes it to the "vX.Y.Z"
// form used for comparison.
func canonicalTag(tag string) (string, error) {
	t := strings.TrimSpace(tag)
	if t == "" {
		return "", fmt.Errorf("empty version tag")
	}
	if !strings.HasPrefix(t, "v") {
		t = "v" + t
	}
	if !semver.IsValid(t) {
		return "", fmt.Errorf("malformed version tag %q", tag)
	}
	return t, nil
}

func parseActionList(node *yaml.Node) ([]Invocation, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("actions must be a list")
	}

	var out []Invocation
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			var name string
			if err := item.Decode(&name); err != nil {
				return nil, err
			}
			out = append(out, Invocation{Name: name})
		case yaml.SequenceNode:
			if len(item.Content) < 1 || len(item.Content) > 2 {
				return nil, fmt.Errorf("action reference must be [name] or [name, params]")
			}
			var name string
			if err := item.Content[0].Decode(&name); err != nil {
				return nil, fmt.Errorf("action name must be a string: %w", err)
			}
			inv := Invocation{Name: name}
			if len(item.Content) == 2 {
				var params map[string]any
				if err := item.Content[1].Decode(&params); err != nil {
					return nil, fmt.Errorf("action parameters must be a mapping: %w", err)
				}
				inv.Params = action.Params(params)
			}
			out = append(out, inv)
		default:
			return nil, fmt.Errorf("action reference must be a name or [name, params]")
		}
	}
	return out, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return semver.Compare(entries[i].Tag, entries[j].Tag) < 0
	})
}
