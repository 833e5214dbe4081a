package buildconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the encoding used to hand a Configuration to external tools.
type Format string

const (
	// FormatJSON writes indented JSON.
	FormatJSON Format = "json"
	// FormatYAML writes block-style YAML with two-space indentation.
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", raw)
	}
}

// Encode writes c to w in the same shape Decode accepts.
func Encode(w io.Writer, c Configuration, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// MarshalJSON encodes the snapshot with postcss.plugins in chain order.
func (c Configuration) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	css, err := json.Marshal(c.StylesheetImports())
	if err != nil {
		return nil, err
	}
	date, err := json.Marshal(c.compatibilityDate)
	if err != nil {
		return nil, err
	}

	buf.WriteString(`{"css":`)
	buf.Write(css)
	buf.WriteString(`,"compatibilityDate":`)
	buf.Write(date)
	fmt.Fprintf(&buf, `,"devtools":{"enabled":%t}`, c.devtoolsEnabled)
	buf.WriteString(`,"postcss":{"plugins":{`)
	for i, p := range c.postcssPlugins {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		opts, err := json.Marshal(p.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options of plugin %s: %w", p.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(opts)
	}
	buf.WriteString(`}}}`)

	return buf.Bytes(), nil
}

// MarshalYAML encodes the snapshot with postcss.plugins in chain order.
func (c Configuration) MarshalYAML() (any, error) {
	css := &yaml.Node{}
	if err := css.Encode(c.StylesheetImports()); err != nil {
		return nil, err
	}

	chain := mapping()
	for _, p := range c.postcssPlugins {
		opts := &yaml.Node{}
		if err := opts.Encode(p.Options); err != nil {
			return nil, fmt.Errorf("encode options of plugin %s: %w", p.Name, err)
		}
		chain.Content = append(chain.Content, scalar(tagString, p.Name), opts)
	}

	devtools := mapping(scalar(tagString, "enabled"), scalar(tagBool, fmt.Sprintf("%t", c.devtoolsEnabled)))
	postcss := mapping(scalar(tagString, "plugins"), chain)

	return mapping(
		scalar(tagString, "css"), css,
		scalar(tagString, "compatibilityDate"), &yaml.Node{Kind: yaml.ScalarNode, Tag: tagString, Value: c.compatibilityDate, Style: yaml.SingleQuotedStyle},
		scalar(tagString, "devtools"), devtools,
		scalar(tagString, "postcss"), postcss,
	), nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func mapping(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}
