// Package config loads the service configuration.
//
// Values come from three sources, highest precedence first:
//
//	1. Environment variables with the GRADES_ prefix
//	2. A YAML file (GRADES_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Defaults from struct tags
//
// Environment variables follow the struct nesting:
//
//	GRADES_SERVER_PORT=8080
//	GRADES_UPLOAD_MAX_BYTES=10485760
//	GRADES_WORKBOOK_SHEET_NAME="Pasiekimų ir lankomumo"
//	GRADES_EXPORT_CHROME_PATH=/usr/bin/chromium
//	GRADES_SHEETS_ENABLED=true
//
// Load validates the result. Default returns the same values without
// reading the environment and is what tests start from.
package config
