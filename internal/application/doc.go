// Package application provides application initialization and dependency wiring.
// It builds the plugin registry from configuration, locates and resolves the
// build configuration document, and writes snapshots for external tooling,
// either once or every time the document changes.
package application
