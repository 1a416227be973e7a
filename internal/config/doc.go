// Package config loads the media store configuration from a YAML file with
// environment-variable overrides. A missing file is not an error: defaults
// run a single-node setup with local disk storage and SQLite quota counters.
//
// Environment variables always win over file values so credentials
// (S3_SECRET_KEY, REDIS_URL) can stay out of the config file.
package config
