package config

// A CKAN catalog provides the dataset records and resource files that are
// published to ESS-DIVE.
type ckanConfig struct {
	// the base URL at which the catalog is accessed (e.g. https://ckan.tacc.utexas.edu)
	URL string `yaml:"url"`
	// an API key or bearer token passed in the Authorization header
	// (optional; required only for private datasets)
	APIKey string `yaml:"api_key"`
}
