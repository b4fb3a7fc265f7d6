package categories

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed taxonomy/*.json
var taxonomyFS embed.FS

const leafValuesKey = "values"

// keyItem is one node of the taxonomy: its dotted path and its own key.
type keyItem struct {
	Path string
	Key  string
}

// leafItem is a terminal node with the literal strings it matches.
type leafItem struct {
	Path     string
	Category string
	Values   []string
}

// taxonomy is the flattened form of one category tree.
type taxonomy struct {
	keys   []keyItem
	leaves []leafItem
	// values holds every leaf value; owner maps an index in values to its leaf.
	values []string
	owner  []int
}

func loadEmbedded(name string) (*taxonomy, error) {
	data, err := taxonomyFS.ReadFile("taxonomy/" + name)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", name, err)
	}
	return parseTaxonomy(data)
}

// parseTaxonomy flattens a category tree. Sibling keys are visited in
// lexical order so the flattened lists do not depend on map iteration.
func parseTaxonomy(data []byte) (*taxonomy, error) {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	t := &taxonomy{}
	if err := t.walk(tree, ""); err != nil {
		return nil, err
	}
	for i, leaf := range t.leaves {
		for _, v := range leaf.Values {
			t.values = append(t.values, v)
			t.owner = append(t.owner, i)
		}
	}
	return t, nil
}

func (t *taxonomy) walk(node map[string]any, prefix string) error {
	names := make([]string, 0, len(node))
	for k := range node {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, key := range names {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		t.keys = append(t.keys, keyItem{Path: path, Key: key})

		child, ok := node[key].(map[string]any)
		if !ok {
			return fmt.Errorf("taxonomy node %s is not an object", path)
		}
		raw, isLeaf := child[leafValuesKey]
		if !isLeaf {
			if err := t.walk(child, path); err != nil {
				return err
			}
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("taxonomy leaf %s: values is not a list", path)
		}
		leaf := leafItem{Path: path, Category: key}
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("taxonomy leaf %s: non-string value %v", path, v)
			}
			leaf.Values = append(leaf.Values, s)
		}
		t.leaves = append(t.leaves, leaf)
	}
	return nil
}
