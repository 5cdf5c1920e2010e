// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.groundwork/config.toml
//   - PromptStore: prompt template overrides at ~/.groundwork/prompts.toml
package file
