package config

// The ESS-DIVE Dataset API to which dataset metadata is submitted.
type essDiveConfig struct {
	// the base URL for the Dataset API (e.g. https://api.ess-dive.lbl.gov)
	URL string `yaml:"url"`
	// a bearer token authorizing dataset creation
	Token string `yaml:"token"`
	// names of additional required metadata fields, appended to the built-in
	// required field set (e.g. fundingSource)
	RequiredFields []string `yaml:"required_fields"`
}
