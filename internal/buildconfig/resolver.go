package buildconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/eugenenazirov/buildconf/internal/plugins"
)

// Option configures Resolve.
type Option func(*resolveOptions)

type resolveOptions struct {
	registry       plugins.Registry
	unknownPlugins bool
}

// WithRegistry sets the registry used to recognise plugin names.
func WithRegistry(registry plugins.Registry) Option {
	return func(o *resolveOptions) {
		o.registry = registry
	}
}

// WithUnknownPlugins accepts plugin names the registry does not know and
// leaves it to the post-processing chain to fail when loading them.
func WithUnknownPlugins(allow bool) Option {
	return func(o *resolveOptions) {
		o.unknownPlugins = allow
	}
}

// Resolve applies defaults to in and validates it. On failure it returns the
// zero Configuration and a *ValidationError listing every problem found.
func Resolve(in Input, opts ...Option) (Configuration, error) {
	o := resolveOptions{registry: plugins.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var errs problems

	imports := make([]string, 0, len(in.CSS))
	for i, path := range in.CSS {
		field := fmt.Sprintf("css[%d]", i)
		if strings.TrimSpace(path) == "" {
			errs.add(field, in.line(field), "stylesheet path must not be empty")
			continue
		}
		imports = append(imports, path)
	}

	date, pinned := resolveDate(in, &errs)

	devtools := false
	if in.Devtools != nil && in.Devtools.Enabled != nil {
		devtools = *in.Devtools.Enabled
	}

	var chain []Plugin
	if in.PostCSS != nil {
		chain = resolvePlugins(in, o, &errs)
	}
	if chain == nil {
		chain = []Plugin{}
	}

	if err := errs.err(); err != nil {
		return Configuration{}, err
	}

	return Configuration{
		stylesheetImports: imports,
		compatibilityDate: date,
		compatibilityTime: pinned,
		devtoolsEnabled:   devtools,
		postcssPlugins:    chain,
	}, nil
}

func resolveDate(in Input, errs *problems) (string, time.Time) {
	const field = "compatibilityDate"
	if in.CompatibilityDate == nil {
		errs.add(field, 0, "required field is missing")
		return "", time.Time{}
	}

	raw := *in.CompatibilityDate
	pinned, err := time.Parse(DateLayout, raw)
	if err != nil {
		errs.add(field, in.line(field), "%q is not a calendar date in YYYY-MM-DD form", raw)
		return "", time.Time{}
	}
	return raw, pinned
}

func resolvePlugins(in Input, o resolveOptions, errs *problems) []Plugin {
	chain := make([]Plugin, 0, len(in.PostCSS.Plugins))
	seen := make(map[string]struct{}, len(in.PostCSS.Plugins))

	for i, p := range in.PostCSS.Plugins {
		field := "postcss.plugins." + p.Name
		if p.Name == "" {
			field = fmt.Sprintf("postcss.plugins[%d]", i)
			errs.add(field, in.line(field), "plugin name must not be empty")
			continue
		}
		if _, dup := seen[p.Name]; dup {
			errs.add(field, in.line(field), "plugin declared more than once")
			continue
		}
		seen[p.Name] = struct{}{}

		if p.Disabled {
			continue
		}
		if !o.unknownPlugins && (o.registry == nil || !o.registry.Known(p.Name)) {
			errs.add(field, in.line(field), "unrecognised PostCSS plugin %q", p.Name)
			continue
		}

		chain = append(chain, Plugin{Name: p.Name, Options: cloneOptions(p.Options)})
	}

	return chain
}
