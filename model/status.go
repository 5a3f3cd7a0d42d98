package model

// StatusDomainDefinition is the root structure of a status-config file. Each
// file declares how one backend enumeration is displayed.
type StatusDomainDefinition struct {
	Domain   string                  `yaml:"domain"   json:"domain"`
	Default  StatusConfig            `yaml:"default"  json:"default"`
	Statuses map[string]StatusConfig `yaml:"statuses" json:"statuses"`

	// Checksum and SourceFile are computed by the loader. Both are empty
	// for built-ins.
	Checksum   string `yaml:"-" json:"-"`
	SourceFile string `yaml:"-" json:"-"`
}

// StatusConfig is the display configuration of one status value.
type StatusConfig struct {
	Label   string   `yaml:"label"   json:"label"`
	Color   string   `yaml:"color"   json:"color"`
	Icon    string   `yaml:"icon"    json:"icon,omitempty"`
	Actions []string `yaml:"actions" json:"actions,omitempty"`
}

// Badge is the resolved status display sent to the client.
type Badge struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

// ActionState describes whether an action button is enabled for a record.
type ActionState struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}
