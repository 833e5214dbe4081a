package buildconfig

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const scenarioYAML = `
css:
  - maplibre-gl/dist/maplibre-gl.css
  - ~/assets/main.css
compatibilityDate: 2024-11-01
devtools:
  enabled: true
postcss:
  plugins:
    tailwindcss: {}
    autoprefixer: {}
`

const scenarioJSON = `{
  "css": ["maplibre-gl/dist/maplibre-gl.css", "~/assets/main.css"],
  "compatibilityDate": "2024-11-01",
  "devtools": {"enabled": true},
  "postcss": {"plugins": {"tailwindcss": {}, "autoprefixer": {}}}
}`

func TestDecodeScenario(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{"yaml": scenarioYAML, "json": scenarioJSON} {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, err := Decode([]byte(doc))
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			cfg, err := Resolve(in)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}

			want, err := Resolve(scenarioInput())
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if diff := cmp.Diff(want, cfg, cmp.AllowUnexported(Configuration{})); diff != "" {
				t.Fatalf("unexpected configuration (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodePreservesPluginOrder(t *testing.T) {
	t.Parallel()

	doc := `
compatibilityDate: "2024-11-01"
postcss:
  plugins:
    postcss-import: {}
    autoprefixer: {}
    tailwindcss: {}
`
	in, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	var names []string
	for _, p := range in.PostCSS.Plugins {
		names = append(names, p.Name)
	}
	if want := []string{"postcss-import", "autoprefixer", "tailwindcss"}; !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}

func TestDecodePluginOptions(t *testing.T) {
	t.Parallel()

	doc := `
compatibilityDate: 2024-11-01
postcss:
  plugins:
    tailwindcss:
      config: ./tailwind.config.js
    cssnano: false
    autoprefixer:
`
	in, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	want := []PluginInput{
		{Name: "tailwindcss", Options: map[string]any{"config": "./tailwind.config.js"}},
		{Name: "cssnano", Options: map[string]any{}, Disabled: true},
		{Name: "autoprefixer", Options: map[string]any{}},
	}
	if diff := cmp.Diff(want, in.PostCSS.Plugins); diff != "" {
		t.Fatalf("unexpected plugins (-want +got):\n%s", diff)
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{"", "~", "# only a comment\n"} {
		in, err := Decode([]byte(doc))
		if err != nil {
			t.Fatalf("Decode(%q) returned error: %v", doc, err)
		}
		if _, err := Resolve(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected missing compatibilityDate for %q, got %v", doc, err)
		}
	}
}

func TestDecodeRejectsMistypedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		doc   string
		field string
		line  int
	}{
		{
			name:  "NonStringStylesheet",
			doc:   "compatibilityDate: 2024-11-01\ncss:\n  - a.css\n  - 42\n",
			field: "css[1]",
			line:  4,
		},
		{
			name:  "StylesheetsNotAList",
			doc:   "css: a.css\n",
			field: "css",
			line:  1,
		},
		{
			name:  "DateNotAString",
			doc:   "compatibilityDate: 20241101\n",
			field: "compatibilityDate",
			line:  1,
		},
		{
			name:  "DevtoolsNotBool",
			doc:   "devtools:\n  enabled: yes please\n",
			field: "devtools.enabled",
			line:  2,
		},
		{
			name:  "UnknownTopLevelKey",
			doc:   "compatibilityDate: 2024-11-01\nssr: false\n",
			field: "ssr",
			line:  2,
		},
		{
			name:  "UnknownDevtoolsKey",
			doc:   "devtools:\n  timeline: true\n",
			field: "devtools.timeline",
			line:  2,
		},
		{
			name:  "PluginOptionsScalar",
			doc:   "postcss:\n  plugins:\n    tailwindcss: fast\n",
			field: "postcss.plugins.tailwindcss",
			line:  3,
		},
		{
			name:  "PluginsNotAMapping",
			doc:   "postcss:\n  plugins:\n    - tailwindcss\n",
			field: "postcss.plugins",
			line:  3,
		},
		{
			name:  "RepeatedDate",
			doc:   "compatibilityDate: 'not-a-date'\ncompatibilityDate: '2024-11-01'\n",
			field: "compatibilityDate",
			line:  2,
		},
		{
			name:  "RepeatedStylesheets",
			doc:   "compatibilityDate: 2024-11-01\ncss: [a.css]\ncss: [b.css]\n",
			field: "css",
			line:  3,
		},
		{
			name:  "RepeatedDevtoolsToggle",
			doc:   "devtools:\n  enabled: false\n  enabled: true\n",
			field: "devtools.enabled",
			line:  3,
		},
		{
			name:  "RepeatedPluginsSection",
			doc:   "postcss:\n  plugins: {}\n  plugins: {}\n",
			field: "postcss.plugins",
			line:  3,
		},
		{
			name:  "RepeatedPlugin",
			doc:   "postcss:\n  plugins:\n    tailwindcss: {}\n    tailwindcss: {}\n",
			field: "postcss.plugins.tailwindcss",
			line:  4,
		},
		{
			name:  "NonStringNestedOptionKey",
			doc:   "postcss:\n  plugins:\n    tailwindcss:\n      nested:\n        1: x\n",
			field: "postcss.plugins.tailwindcss",
			line:  5,
		},
		{
			name:  "RootNotAMapping",
			doc:   "- css\n",
			field: "",
			line:  1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tc.doc))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(verr.Problems) != 1 {
				t.Fatalf("expected a single problem, got %v", verr.Problems)
			}
			if got := verr.Problems[0]; got.Field != tc.field || got.Line != tc.line {
				t.Fatalf("expected problem on %q line %d, got %q line %d", tc.field, tc.line, got.Field, got.Line)
			}
		})
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("css: [unterminated"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("syntax errors must not be reported as validation errors: %v", err)
	}
}

func TestResolveErrorCarriesSourceLine(t *testing.T) {
	t.Parallel()

	doc := "css:\n  - a.css\ncompatibilityDate: not-a-date\n"
	in, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	_, err = Resolve(in)
	if err == nil || !strings.Contains(err.Error(), "compatibilityDate (line 3)") {
		t.Fatalf("expected error to point at line 3, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	want, err := Resolve(scenarioInput())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		if err := Encode(&buf, want, format); err != nil {
			t.Fatalf("Encode(%s) returned error: %v", format, err)
		}

		in, err := Decode(buf.Bytes())
		if err != nil {
			t.Fatalf("Decode of %s output returned error: %v\n%s", format, err, buf.String())
		}
		got, err := Resolve(in)
		if err != nil {
			t.Fatalf("Resolve of %s output returned error: %v", format, err)
		}
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(Configuration{})); diff != "" {
			t.Fatalf("%s round trip changed configuration (-want +got):\n%s", format, diff)
		}
	}
}

func TestEncodeJSONKeepsPluginOrder(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve(Input{
		CompatibilityDate: ptr("2024-11-01"),
		PostCSS: &PostCSSInput{Plugins: []PluginInput{
			{Name: "tailwindcss"},
			{Name: "autoprefixer"},
			{Name: "cssnano"},
		}},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cfg, FormatJSON); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	out := buf.String()

	tw := strings.Index(out, `"tailwindcss"`)
	ap := strings.Index(out, `"autoprefixer"`)
	nano := strings.Index(out, `"cssnano"`)
	if tw < 0 || !(tw < ap && ap < nano) {
		t.Fatalf("expected plugins in declared order, got:\n%s", out)
	}
	if !strings.Contains(out, `"css": []`) {
		t.Fatalf("expected empty css list to be encoded, got:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, " yml ": FormatYAML} {
		got, err := ParseFormat(raw)
		if err != nil {
			t.Fatalf("ParseFormat(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestDecodeNestedPluginOptions(t *testing.T) {
	t.Parallel()

	doc := `
compatibilityDate: 2024-11-01
postcss:
  plugins:
    tailwindcss:
      config:
        theme:
          extend: {colors: {brand: "#123456"}}
        content: [./components/**/*.vue]
`
	in, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	cfg, err := Resolve(in)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cfg, FormatJSON); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"brand": "#123456"`) {
		t.Fatalf("expected nested options in output, got:\n%s", buf.String())
	}
}

func TestEncodeStringifiesOptionKeys(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve(Input{
		CompatibilityDate: ptr("2024-11-01"),
		PostCSS: &PostCSSInput{Plugins: []PluginInput{
			{Name: "cssnano", Options: map[string]any{"nested": map[any]any{1: "x"}}},
		}},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		if err := Encode(&buf, cfg, format); err != nil {
			t.Fatalf("Encode(%s) returned error: %v", format, err)
		}
	}

	nano, _ := cfg.PostCSSPlugin("cssnano")
	if diff := cmp.Diff(map[string]any{"nested": map[string]any{"1": "x"}}, nano.Options); diff != "" {
		t.Fatalf("unexpected options (-want +got):\n%s", diff)
	}
}
