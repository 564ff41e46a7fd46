package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// a type with service configuration parameters
type serviceConfig struct {
	// port on which the service listens
	Port int `yaml:"port"`
	// maximum number of allowed incoming connections
	MaxConnections int `yaml:"max_connections"`
	// directory in which the service stores its journal and credential cache
	DataDirectory string `yaml:"data_directory"`
	// time (seconds) after which completed publication records are purged
	DeleteAfter int `yaml:"delete_after"`
	// optional log file (rotated); if empty, logs go to stderr
	LogFile string `yaml:"log_file"`
}

// global config variables
var Service serviceConfig
var Ckan ckanConfig
var EssDive essDiveConfig
var Staging stagingConfig

// when true, publication runs validate but never create ESS-DIVE datasets
var DryRun bool

// This struct performs the unmarshalling from the YAML config file and then
// copies its fields to the globals above.
type configFile struct {
	Service serviceConfig `yaml:"service"`
	Ckan    ckanConfig    `yaml:"ckan"`
	EssDive essDiveConfig `yaml:"essdive"`
	Staging stagingConfig `yaml:"staging"`
	DryRun  *bool         `yaml:"dry_run"`
}

// This helper reads configuration data, returning an error indicating success
// or failure. All environment variables of the form ${ENV_VAR} are expanded.
func readConfig(bytes []byte) error {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	var conf configFile
	conf.Service.Port = 8080
	conf.Service.MaxConnections = 100
	conf.Service.DeleteAfter = 7 * 24 * 3600
	conf.Staging.Workers = 4
	err := yaml.Unmarshal(bytes, &conf)
	if err != nil {
		log.Printf("Couldn't parse configuration data: %s\n", err)
		return err
	}

	// copy the config data into place
	Service = conf.Service
	Ckan = conf.Ckan
	EssDive = conf.EssDive
	Staging = conf.Staging

	// dry_run defaults to true: publishing is always opt-in
	if conf.DryRun != nil {
		DryRun = *conf.DryRun
	} else {
		DryRun = true
	}

	return err
}

// This helper validates the given service parameters, returning an
// error indicating success or failure.
func validateServiceParameters(params serviceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid maxConnections: %d (must be positive)",
			params.MaxConnections)
	}
	return nil
}

// This helper validates the configuration, returning an error that indicates
// success or failure.
func validateConfig() error {
	err := validateServiceParameters(Service)
	if err != nil {
		return err
	}

	// were we given a CKAN catalog?
	if Ckan.URL == "" {
		return fmt.Errorf("No CKAN catalog URL was provided!")
	}

	// were we given an ESS-DIVE API?
	if EssDive.URL == "" {
		return fmt.Errorf("No ESS-DIVE API URL was provided!")
	}

	// exactly one staging destination must be configured
	return validateStagingParameters(Staging)
}

// Initializes the publication service configuration using the given YAML
// byte data.
func Init(yamlData []byte) error {

	// Read the configuration from our YAML file.
	err := readConfig(yamlData)
	if err != nil {
		return err
	}

	// Validate the configuration.
	err = validateConfig()
	return err
}
