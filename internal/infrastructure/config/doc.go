// Package config handles loading and validating the Rotex CAN core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading secrets from an optional .env file beside the YAML file
//   - Overriding with ROTEXCAN_* environment variables
//   - Validation of required fields
//
// Durations in the engine and entities sections use Go syntax ("250ms", "30s").
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.CAN.Interface)
package config
