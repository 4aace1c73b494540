// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration in the docchat config directory
//   - PromptStore: user-editable prompt templates with built-in defaults
package file
