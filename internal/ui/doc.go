// Package ui holds the terminal styling shared by the CLI commands.
//
// [Styles] is a [Palette] of [lipgloss] styles for titles, success and failure lines, warnings, help text
// and aligned key/value fields. [Palette] also satisfies [Painter] for one-off colors.
package ui
