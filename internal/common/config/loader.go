package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// flagBindings maps viper keys to CLI flag names. Every setting can come
// from a flag or from the environment (WORKFORCE_PORTAL_USERNAME, ...);
// flags win when set.
var flagBindings = map[string]string{
	"portal.org_url":              "org-url",
	"portal.username":             "username",
	"portal.password":             "password",
	"portal.project_id":           "project-id",
	"csv.file":                    "csv-file",
	"csv.date_format":             "date-format",
	"csv.wkid":                    "wkid",
	"csv.timezone":                "timezone",
	"csv.fields.x":                "x-field",
	"csv.fields.y":                "y-field",
	"csv.fields.assignment_type":  "assignment-type-field",
	"csv.fields.location":         "location-field",
	"csv.fields.dispatcher_id":    "dispatcher-id-field",
	"csv.fields.description":      "description-field",
	"csv.fields.priority":         "priority-field",
	"csv.fields.work_order_id":    "work-order-id-field",
	"csv.fields.due_date":         "due-date-field",
	"csv.fields.worker":           "worker-field",
	"csv.fields.attachment_file":  "attachment-file-field",
	"logging.level":               "log-level",
	"logging.file":                "log-file",
}

// Load builds the run configuration from the given flag set, the process
// environment and an optional .env file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.SetEnvPrefix("WORKFORCE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	applyDefaults(v)

	for key, flagName := range flagBindings {
		if f := flags.Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flagName, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("portal.timeout_seconds", 60)
	// Go layout for MM/DD/YYYY HH:MM:SS, the service's wire format.
	v.SetDefault("csv.date_format", "01/02/2006 15:04:05")
	// 4326 is the CLI default of the reference tooling; x/y are lon/lat.
	v.SetDefault("csv.wkid", 4326)
	v.SetDefault("csv.timezone", "UTC")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
}

func validate(cfg *Config) error {
	required := map[string]string{
		"org-url":               cfg.Portal.OrgURL,
		"username":              cfg.Portal.Username,
		"password":              cfg.Portal.Password,
		"project-id":            cfg.Portal.ProjectID,
		"csv-file":              cfg.CSV.File,
		"x-field":               cfg.CSV.Fields.X,
		"y-field":               cfg.CSV.Fields.Y,
		"assignment-type-field": cfg.CSV.Fields.AssignmentType,
		"location-field":        cfg.CSV.Fields.Location,
		"log-file":              cfg.Logging.File,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if cfg.CSV.WKID <= 0 {
		return fmt.Errorf("wkid must be positive")
	}
	if cfg.Portal.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	return nil
}
