// Package config provides centralized configuration management for the
// pricing tool.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (PRICING_CONFIG, pricing.yaml, config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PRICING_<SECTION>_<FIELD>:
//
//	PRICING_SERVER_PORT=8080
//	PRICING_SOURCES_SINAPI="SINAPI_Referência_2024_08.xlsx"
//	PRICING_ENGINE_MAX_PASSES=15
//	PRICING_LOGGING_LEVEL=debug
//
// # Path Management
//
// GetPaths resolves the data, output and logs directories against the
// configured root, along with every input workbook and output artifact:
//
//	paths, err := config.GetPaths(cfg)
//	services := paths.ServicesCSV
//
// # Validation
//
// Values are checked with go-playground/validator struct tags at load time.
package config
