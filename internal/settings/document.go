package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/validation"
)

// Applied summarizes one Apply call.
type Applied struct {
	Changed   int
	Unchanged int
	Failed    int
}

// Apply sets every value of a YAML or JSON settings document. Keys nest by
// sub-record or use dotted names:
//
//	network:
//	  ip: 10.0.0.20
//	  dhcp: false
//	port0.universe: 3
//	sacn.universes: [1, 2, 3, 4]
//
// Valid entries are applied even when others fail; the failures are
// returned together.
func (r *Registry) Apply(data []byte) (Applied, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Applied{}, fmt.Errorf("parse settings: %w", err)
	}

	var res Applied
	ve := errors.NewValidationErrors()

	// An empty document has no content.
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		r.walk(&res, ve, "", root.Content[0])
	}

	log.Info("settings applied",
		"changed", res.Changed,
		"unchanged", res.Unchanged,
		"failed", res.Failed)

	return res, ve.Err()
}

// ApplyFile reads a settings document from path and applies it.
func (r *Registry) ApplyFile(path string) (Applied, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Applied{}, fmt.Errorf("read settings file: %w", err)
	}
	return r.Apply(data)
}

func (r *Registry) walk(res *Applied, ve *errors.ValidationErrors, prefix string, n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			r.walk(res, ve, key, n.Content[i+1])
		}
		return
	}

	if prefix == "" {
		res.Failed++
		ve.Add(errors.NewValidation("settings", "document must be a mapping"))
		return
	}

	changed, err := r.assign(prefix, n)
	switch {
	case err != nil:
		res.Failed++
		ve.Add(err)
	case changed:
		res.Changed++
	default:
		res.Unchanged++
	}
}

func (r *Registry) assign(name string, n *yaml.Node) (bool, error) {
	e, ok := r.entries[name]
	if !ok {
		return false, errors.NewUnknownField(name)
	}

	var items []string
	switch n.Kind {
	case yaml.ScalarNode:
		items = itemsOf(e, n.Value)
	case yaml.SequenceNode:
		if e.info.Kind != KindList {
			return false, errors.NewInvalidValue(name, "[...]", "not a list setting")
		}
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return false, errors.NewInvalidValue(name, c.Value, "list entries must be scalars")
			}
			items = append(items, c.Value)
		}
	default:
		return false, errors.NewInvalidValue(name, n.Value, "unsupported value")
	}

	return e.set(r.st, items)
}

// Dump encodes the stored values of every setting as a YAML document
// nested by sub-record. Applying the output to a fresh store reproduces
// the record.
func (r *Registry) Dump() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	sections := make(map[string]*yaml.Node)

	for _, name := range r.order {
		n, _ := validation.ParseSettingName(name)
		section, key := n.Section, n.Field
		sec, ok := sections[section]
		if !ok {
			sec = &yaml.Node{Kind: yaml.MappingNode}
			sections[section] = sec
			doc.Content = append(doc.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: section}, sec)
		}

		var v yaml.Node
		if err := v.Encode(r.entries[name].value(r.st)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		sec.Content = append(sec.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key}, &v)
	}

	return yaml.Marshal(doc)
}
