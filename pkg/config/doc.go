// Package config loads typed configuration structs.
//
// Values are resolved in this order, later sources winning: `envDefault`
// tags, dotenv files, process environment, an optional YAML file. The result
// is then checked against `validate` struct tags.
//
//	var cfg notifications.Config
//	config.MustLoad(&cfg, config.WithYAMLFile("notifications.yaml"))
//
// Map-shaped settings such as routing tables are easier to express in YAML;
// scalar knobs usually come from the environment.
package config
