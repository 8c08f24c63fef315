// Package config handles loader configuration from the environment and an
// optional YAML file.
//
// The operator supplies the license key before launch, either directly as
// LOADER_SCRIPT_KEY or through a .env file in the working directory. All
// other values have sensible defaults and exist mainly so tests and staging
// deployments can point the loader at a different API endpoint.
//
// Precedence: environment (including .env) > YAML file > defaults.
package config
