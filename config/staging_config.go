package config

import (
	"fmt"
)

// A staging destination receives a dataset's resource files prior to (and
// independent of) metadata submission. Exactly one of the local and tapis
// sections must be present.
type stagingConfig struct {
	// local directory staging
	Local localStagingConfig `yaml:"local"`
	// Tapis Files staging (system ID + target path)
	Tapis tapisStagingConfig `yaml:"tapis"`
	// maximum number of concurrent resource transfers
	Workers int `yaml:"workers"`
	// if true, a partially staged dataset does not block submission
	AllowPartial bool `yaml:"allow_partial"`
}

type localStagingConfig struct {
	// directory into which resource files are written
	Dir string `yaml:"dir"`
}

type tapisStagingConfig struct {
	// the base URL for the Tapis tenant (e.g. https://portals.tapis.io)
	URL string `yaml:"url"`
	// a bearer token authorizing file uploads (optional if username/password
	// are exchanged at startup)
	Token string `yaml:"token"`
	// the ID of the Tapis system receiving the files
	SystemId string `yaml:"system_id"`
	// the directory on the system into which files are uploaded
	Path string `yaml:"path"`
}

// returns the name of the staging target provider the configuration selects
// ("local" or "tapis")
func (params stagingConfig) TargetName() string {
	if params.Local.Dir != "" {
		return "local"
	}
	return "tapis"
}

// This helper validates the given staging parameters, returning an error
// indicating success or failure.
func validateStagingParameters(params stagingConfig) error {
	local := params.Local.Dir != ""
	tapis := params.Tapis.SystemId != "" || params.Tapis.URL != ""
	if local && tapis {
		return fmt.Errorf("Both local and Tapis staging destinations were provided (pick one)!")
	}
	if !local && !tapis {
		return fmt.Errorf("No staging destination was provided!")
	}
	if tapis {
		if params.Tapis.URL == "" {
			return fmt.Errorf("Tapis staging requires a tenant URL!")
		}
		if params.Tapis.SystemId == "" {
			return fmt.Errorf("Tapis staging requires a system ID!")
		}
		if params.Tapis.Path == "" {
			return fmt.Errorf("Tapis staging requires a target path!")
		}
	}
	if params.Workers <= 0 {
		return fmt.Errorf("Invalid staging workers: %d (must be positive)", params.Workers)
	}
	return nil
}
