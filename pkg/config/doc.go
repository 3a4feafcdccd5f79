// Package config loads service configuration.
//
// Values come from Default(), then an optional YAML file named by CLIENTBILL_CONFIG_FILE,
// then CLIENTBILL_* environment variables (DATABASE_URL and RESEND_API_KEY are also honoured).
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
