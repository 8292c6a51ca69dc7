package config

// Config is the full run configuration for a single import.
type Config struct {
	Portal  PortalConfig  `mapstructure:"portal"`
	CSV     CSVConfig     `mapstructure:"csv"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PortalConfig identifies the org portal and the acting user.
type PortalConfig struct {
	OrgURL         string `mapstructure:"org_url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	ProjectID      string `mapstructure:"project_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CSVConfig names the input file and which columns carry which fields.
type CSVConfig struct {
	File       string       `mapstructure:"file"`
	DateFormat string       `mapstructure:"date_format"` // Go reference layout
	WKID       int          `mapstructure:"wkid"`
	Timezone   string       `mapstructure:"timezone"`
	Fields     FieldsConfig `mapstructure:"fields"`
}

// FieldsConfig maps CSV column names to assignment fields. The first four
// are required; an empty optional mapping means the attribute is omitted
// from every record.
type FieldsConfig struct {
	X              string `mapstructure:"x"`
	Y              string `mapstructure:"y"`
	AssignmentType string `mapstructure:"assignment_type"`
	Location       string `mapstructure:"location"`
	DispatcherID   string `mapstructure:"dispatcher_id"`
	Description    string `mapstructure:"description"`
	Priority       string `mapstructure:"priority"`
	WorkOrderID    string `mapstructure:"work_order_id"`
	DueDate        string `mapstructure:"due_date"`
	Worker         string `mapstructure:"worker"`
	AttachmentFile string `mapstructure:"attachment_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}
