// Package plugins tracks which PostCSS plugin identifiers the
// post-processing chain is able to load.
package plugins
