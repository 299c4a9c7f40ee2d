// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default() values
//	2. A YAML file (config.yaml or configs/config.yaml, or an explicit path)
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern ESG_<SECTION>_<KEY>:
//
//	ESG_SERVER_PORT=8080
//	ESG_PROVIDER_KIND=eodhd
//	ESG_PROVIDER_API_KEY=...
//	ESG_PROVIDER_ALIASES=^GSPC:GSPC.INDX,^VIX:VIX.INDX
//	ESG_OUTPUT_FORMATS=csv,parquet
//	ESG_OUTPUT_S3_BUCKET=esg-features
//
// # Paths
//
// Relative directories are anchored at paths.base_dir (the working directory
// by default):
//
//	cfg, err := config.Load("")
//	paths, err := cfg.ResolvePaths()
//	err = paths.EnsureDirectories()
package config
