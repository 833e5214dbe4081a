// Package buildconfig resolves a declarative build configuration (global
// stylesheets, compatibility date, devtools toggle and the PostCSS plugin
// chain) into an immutable, validated Configuration consumed by the bundler
// and the CSS post-processing chain.
//
// Resolution is a pure, single-shot transform: Decode turns a YAML or JSON
// document into an Input, and Resolve applies defaults and validation. No
// partially populated Configuration is ever returned.
package buildconfig
