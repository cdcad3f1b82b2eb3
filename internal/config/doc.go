// Package config loads and validates the TOML configuration document that
// drives every finlens component: storage paths, analysis pipeline policies,
// reasoning engine credentials, work queue tuning, and logging.
//
// Defaults are safe for local use; Load layers the user's file over Default()
// so partial configs are valid.
package config
