// Package config collects the tunables of the caching and bulk layers
// into explicit structs with named defaults.
//
// Nothing here is ambient: FromEnv reads the CLICKOPS_* environment
// variables once and returns a value; multiple cache instances built from
// different Settings never interfere.
package config
