// Package config holds the flag values bound by pulse's commands.
package config

// GlobalFlags are persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
	LogFormat  string
	Verbose    bool
}

// AnalyzerFlags override the analyzer section of the settings.
type AnalyzerFlags struct {
	Command    string
	Args       []string
	Dir        string
	URL        string
	TimeoutStr string
}

// ContextConfig holds context-related flags
type ContextConfig struct {
	JSON string
	KV   []string
	File string
}

// UploadConfig holds archive upload flags
type UploadConfig struct {
	Provider   string
	Config     string
	ConfigKV   []string
	ConfigFile string
}

// WebhookConfig holds webhook-related flags
type WebhookConfig struct {
	// Direct configuration flags
	URL        string
	Method     string // HTTP method (GET, POST, PUT, PATCH, DELETE)
	AuthType   string
	AuthToken  string
	Timeout    string
	Retries    int
	RetryDelay string

	// Alternative configuration methods
	Config     string   // JSON string configuration
	ConfigKV   []string // Key-value pairs
	ConfigFile string   // Path to JSON or YAML config file
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Port int
}

// AnalyzeFlags holds flags for the analyze command.
type AnalyzeFlags struct {
	Summary bool
	DryRun  bool
}
