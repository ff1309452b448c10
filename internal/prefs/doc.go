// Package prefs persists small user preferences, such as the chat theme,
// in a TOML file next to the chat configuration.
package prefs
