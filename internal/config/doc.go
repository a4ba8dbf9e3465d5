// Package config loads, validates, and defaults darkroom's TOML
// configuration.
//
// Configuration resolution order: an explicit path argument, then
// ~/.config/darkroom/config.toml, then ./darkroom.toml. Missing files are not
// an error; defaults apply. All path fields are tilde-expanded and made
// absolute during normalization so downstream packages never deal with
// relative paths.
package config
