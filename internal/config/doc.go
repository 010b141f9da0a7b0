// Package config loads, normalizes, and validates storyboard configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/storyboard/config.toml or a
// project-local storyboard.toml. The Config type centralizes every knob the
// daemon and CLI need so downstream code receives sanitized paths and clear
// validation errors.
package config
