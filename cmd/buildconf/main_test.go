package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scenario = `css:
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

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunResolve(t *testing.T) {
	path := writeFile(t, "buildconf.yaml", scenario)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", path, "--log-level", "error", "resolve"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit code %d, got %d: %s", exitOK, code, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, `"compatibilityDate": "2024-11-01"`) {
		t.Fatalf("expected compatibility date in output, got:\n%s", out)
	}
	if strings.Index(out, "tailwindcss") > strings.Index(out, "autoprefixer") {
		t.Fatalf("expected tailwindcss before autoprefixer, got:\n%s", out)
	}
}

func TestRunDefaultsToResolveAndYAML(t *testing.T) {
	path := writeFile(t, "buildconf.yaml", scenario)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-c", path, "-f", "yaml", "--log-level", "error"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit code %d, got %d: %s", exitOK, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "compatibilityDate: '2024-11-01'") {
		t.Fatalf("expected YAML output, got:\n%s", stdout.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		args []string
		want int
	}{
		{
			name: "InvalidDate",
			doc:  "compatibilityDate: not-a-date\n",
			want: exitInvalid,
		},
		{
			name: "UnknownPlugin",
			doc:  "compatibilityDate: 2024-11-01\npostcss:\n  plugins:\n    postcss-custom: {}\n",
			want: exitInvalid,
		},
		{
			name: "UnknownPluginRegistered",
			doc:  "compatibilityDate: 2024-11-01\npostcss:\n  plugins:\n    postcss-custom: {}\n",
			args: []string{"--plugin", "postcss-custom"},
			want: exitOK,
		},
		{
			name: "UnknownPluginAllowed",
			doc:  "compatibilityDate: 2024-11-01\npostcss:\n  plugins:\n    postcss-custom: {}\n",
			args: []string{"--allow-unknown-plugins"},
			want: exitOK,
		},
		{
			name: "BadFormat",
			doc:  "compatibilityDate: 2024-11-01\n",
			args: []string{"--format", "toml"},
			want: exitUsage,
		},
		{
			name: "UnknownFlag",
			doc:  "compatibilityDate: 2024-11-01\n",
			args: []string{"--no-such-flag"},
			want: exitUsage,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "buildconf.yaml", tc.doc)
			args := append([]string{"--config", path, "--log-level", "error"}, tc.args...)

			var stdout, stderr bytes.Buffer
			if code := run(args, &stdout, &stderr); code != tc.want {
				t.Fatalf("expected exit code %d, got %d: %s", tc.want, code, stderr.String())
			}
			if tc.want == exitInvalid && !strings.Contains(stderr.String(), "invalid build configuration") {
				t.Fatalf("expected validation error on stderr, got %q", stderr.String())
			}
		})
	}
}

func TestRunMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", missing, "--log-level", "error"}, &stdout, &stderr); code != exitInternal {
		t.Fatalf("expected exit code %d, got %d", exitInternal, code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no output, got %s", stdout.String())
	}
}
