package buildconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	tagString    = "!!str"
	tagTimestamp = "!!timestamp"
	tagBool      = "!!bool"
	tagNull      = "!!null"
	tagMerge     = "!!merge"
)

// Decode reads a YAML or JSON build configuration document into an Input.
// Key order of postcss.plugins is preserved. Type mismatches and unknown
// keys are reported as *ValidationError; malformed documents are not.
func Decode(data []byte) (Input, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Input{}, fmt.Errorf("parse build configuration: %w", err)
	}

	in := Input{lines: make(map[string]int)}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return in, nil
	}

	root := deref(doc.Content[0])
	if isNull(root) {
		return in, nil
	}

	var errs problems
	if root.Kind != yaml.MappingNode {
		errs.add("", root.Line, "document must be a mapping of configuration sections")
		return Input{}, errs.err()
	}

	d := decoder{in: &in, errs: &errs}
	seen := make(map[string]struct{}, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], deref(root.Content[i+1])
		if d.repeated(seen, key.Value, key) {
			continue
		}
		switch key.Value {
		case "css":
			d.stylesheets(value)
		case "compatibilityDate":
			d.compatibilityDate(value)
		case "devtools":
			d.devtools(value)
		case "postcss":
			d.postcss(value)
		default:
			errs.add(key.Value, key.Line, "unrecognised configuration key")
		}
	}

	if err := errs.err(); err != nil {
		return Input{}, err
	}
	return in, nil
}

type decoder struct {
	in   *Input
	errs *problems
}

func (d decoder) mark(field string, n *yaml.Node) {
	d.in.lines[field] = n.Line
}

// repeated reports a key already seen in the same mapping. Every occurrence
// after the first is rejected so an earlier value is never silently dropped.
func (d decoder) repeated(seen map[string]struct{}, field string, key *yaml.Node) bool {
	if _, ok := seen[key.Value]; ok {
		d.errs.add(field, key.Line, "declared more than once")
		return true
	}
	seen[key.Value] = struct{}{}
	return false
}

func (d decoder) stylesheets(n *yaml.Node) {
	const field = "css"
	if isNull(n) {
		return
	}
	if n.Kind != yaml.SequenceNode {
		d.errs.add(field, n.Line, "must be a list of stylesheet paths")
		return
	}

	d.in.CSS = make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		item = deref(item)
		entry := fmt.Sprintf("css[%d]", i)
		if item.Kind != yaml.ScalarNode || item.ShortTag() != tagString {
			d.errs.add(entry, item.Line, "stylesheet path must be a string")
			continue
		}
		d.mark(entry, item)
		d.in.CSS = append(d.in.CSS, item.Value)
	}
}

func (d decoder) compatibilityDate(n *yaml.Node) {
	const field = "compatibilityDate"
	if isNull(n) {
		return
	}
	// unquoted dates resolve to !!timestamp in YAML; the text is what counts
	if n.Kind != yaml.ScalarNode || (n.ShortTag() != tagString && n.ShortTag() != tagTimestamp) {
		d.errs.add(field, n.Line, "must be a date string")
		return
	}
	d.mark(field, n)
	value := n.Value
	d.in.CompatibilityDate = &value
}

func (d decoder) devtools(n *yaml.Node) {
	if isNull(n) {
		return
	}
	if n.Kind != yaml.MappingNode {
		d.errs.add("devtools", n.Line, "must be a mapping")
		return
	}

	d.in.Devtools = &DevtoolsInput{}
	seen := make(map[string]struct{}, 1)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], deref(n.Content[i+1])
		field := "devtools." + key.Value
		if d.repeated(seen, field, key) {
			continue
		}
		if key.Value != "enabled" {
			d.errs.add(field, key.Line, "unrecognised configuration key")
			continue
		}
		if isNull(value) {
			continue
		}
		var enabled bool
		if value.ShortTag() != tagBool || value.Decode(&enabled) != nil {
			d.errs.add(field, value.Line, "must be true or false")
			continue
		}
		d.mark(field, value)
		d.in.Devtools.Enabled = &enabled
	}
}

func (d decoder) postcss(n *yaml.Node) {
	if isNull(n) {
		return
	}
	if n.Kind != yaml.MappingNode {
		d.errs.add("postcss", n.Line, "must be a mapping")
		return
	}

	d.in.PostCSS = &PostCSSInput{}
	seen := make(map[string]struct{}, 1)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], deref(n.Content[i+1])
		if d.repeated(seen, "postcss."+key.Value, key) {
			continue
		}
		if key.Value != "plugins" {
			d.errs.add("postcss."+key.Value, key.Line, "unrecognised configuration key")
			continue
		}
		d.plugins(value)
	}
}

func (d decoder) plugins(n *yaml.Node) {
	if isNull(n) {
		return
	}
	if n.Kind != yaml.MappingNode {
		d.errs.add("postcss.plugins", n.Line, "must be a mapping of plugin name to options")
		return
	}

	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], deref(n.Content[i+1])
		field := "postcss.plugins." + key.Value
		if key.Value == "" {
			field = fmt.Sprintf("postcss.plugins[%d]", len(d.in.PostCSS.Plugins))
		}
		if d.repeated(seen, field, key) {
			continue
		}
		d.mark(field, key)

		plugin := PluginInput{Name: key.Value, Options: map[string]any{}}
		switch {
		case isNull(value):
		case value.Kind == yaml.MappingNode:
			if err := value.Decode(&plugin.Options); err != nil {
				d.errs.add(field, value.Line, "invalid plugin options: %v", err)
				continue
			}
			if bad, line, ok := nonStringKey(value); ok {
				d.errs.add(field, line, "plugin option key %q must be a string", bad)
				continue
			}
		case value.ShortTag() == tagBool:
			var enabled bool
			if err := value.Decode(&enabled); err != nil {
				d.errs.add(field, value.Line, "invalid plugin toggle: %v", err)
				continue
			}
			plugin.Disabled = !enabled
		default:
			d.errs.add(field, value.Line, "plugin options must be a mapping or false")
			continue
		}

		d.in.PostCSS.Plugins = append(d.in.PostCSS.Plugins, plugin)
	}
}

// nonStringKey finds the first mapping key below n that does not resolve to
// a string. Such keys have no JSON representation.
func nonStringKey(n *yaml.Node) (string, int, bool) {
	n = deref(n)
	if n == nil {
		return "", 0, false
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := deref(n.Content[i])
			if key.Kind != yaml.ScalarNode || (key.ShortTag() != tagString && key.ShortTag() != tagMerge) {
				return key.Value, key.Line, true
			}
		}
	}
	for _, child := range n.Content {
		if key, line, ok := nonStringKey(child); ok {
			return key, line, true
		}
	}
	return "", 0, false
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == tagNull)
}
