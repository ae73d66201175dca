// Package config loads pipeline settings and notification secrets.
//
// Settings live in a JSON5 file (tbill-yields.json5 by default). A sibling file with a
// ".local" infix (tbill-yields.local.json5) is merged on top, so a checkout can keep
// machine-specific overrides out of version control. Both files are optional; anything
// they leave unset keeps the built-in default.
//
// Secrets are never read from the config file. They come from the environment, which
// may be primed from a .env file.
package config
