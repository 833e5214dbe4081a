package buildconfig

import (
	"fmt"
	"time"
)

// DateLayout is the accepted layout of compatibilityDate.
const DateLayout = "2006-01-02"

// Input is the loosely typed side of the resolver: every section is optional
// and nothing has been validated yet. Decode builds one from a document, but
// callers may also populate it directly.
type Input struct {
	CSS               []string
	CompatibilityDate *string
	Devtools          *DevtoolsInput
	PostCSS           *PostCSSInput

	// source lines keyed by field path, set by Decode
	lines map[string]int
}

// DevtoolsInput mirrors the devtools section.
type DevtoolsInput struct {
	Enabled *bool
}

// PostCSSInput mirrors the postcss section. Plugins keep declaration order.
type PostCSSInput struct {
	Plugins []PluginInput
}

// PluginInput is one entry of postcss.plugins. A disabled plugin is declared
// with `false` instead of an options mapping and is left out of the chain.
type PluginInput struct {
	Name     string
	Options  map[string]any
	Disabled bool
}

func (in Input) line(field string) int {
	return in.lines[field]
}

// Plugin is one step of the post-processing chain.
type Plugin struct {
	Name    string
	Options map[string]any
}

// Configuration is the resolved, immutable settings snapshot. The zero value
// is never returned alongside a nil error. Accessors return copies, so a
// Configuration can be shared between goroutines without synchronisation.
type Configuration struct {
	stylesheetImports []string
	compatibilityDate string
	compatibilityTime time.Time
	devtoolsEnabled   bool
	postcssPlugins    []Plugin
}

// StylesheetImports returns the global stylesheets in declaration order.
func (c Configuration) StylesheetImports() []string {
	out := make([]string, len(c.stylesheetImports))
	copy(out, c.stylesheetImports)
	return out
}

// CompatibilityDate returns the pinned date as written, YYYY-MM-DD.
func (c Configuration) CompatibilityDate() string {
	return c.compatibilityDate
}

// CompatibilityTime returns the pinned date as midnight UTC.
func (c Configuration) CompatibilityTime() time.Time {
	return c.compatibilityTime
}

// DevtoolsEnabled reports whether the diagnostic tooling surface is on.
func (c Configuration) DevtoolsEnabled() bool {
	return c.devtoolsEnabled
}

// PostCSSPlugins returns the post-processing chain in execution order.
func (c Configuration) PostCSSPlugins() []Plugin {
	out := make([]Plugin, len(c.postcssPlugins))
	for i, p := range c.postcssPlugins {
		out[i] = p.clone()
	}
	return out
}

// PostCSSPlugin looks up a plugin of the chain by name.
func (c Configuration) PostCSSPlugin(name string) (Plugin, bool) {
	for _, p := range c.postcssPlugins {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Plugin{}, false
}

func (p Plugin) clone() Plugin {
	return Plugin{Name: p.Name, Options: cloneOptions(p.Options)}
}

func cloneOptions(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneOptions(val)
	case map[any]any:
		// keys are stringified so every snapshot stays encodable as JSON
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
