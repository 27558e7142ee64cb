// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultGitHubDomain is used when GITHUB_DOMAIN is not set.
	DefaultGitHubDomain = "github.com"
	// DefaultServerAddr is the listen address of the HTTP backend.
	DefaultServerAddr = ":5000"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub  GitHubConfig
	Jira    JiraConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	// Token is only needed by CLI commands; the server uses the caller's token.
	Token  string
	Domain string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	BaseURL  string
	Username string
	Token    string
	// Project is the JIRA project key new issues are mirrored into.
	Project string
}

// Enabled reports whether every JIRA setting required for mirroring is present.
func (j JiraConfig) Enabled() bool {
	return j.BaseURL != "" && j.Username != "" && j.Token != "" && j.Project != ""
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr       string
	CORSOrigin string
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables and, when
// configFile is non-empty, from that file. Environment variables win.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("github.domain", DefaultGitHubDomain)
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Map specific environment variables
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("github.domain", "GITHUB_DOMAIN")
	_ = v.BindEnv("jira.url", "JIRA_URL")
	_ = v.BindEnv("jira.username", "JIRA_USERNAME")
	_ = v.BindEnv("jira.token", "JIRA_TOKEN")
	_ = v.BindEnv("jira.project", "JIRA_PROJECT")
	_ = v.BindEnv("server.addr", "SERVER_ADDR")
	_ = v.BindEnv("server.cors_origin", "CORS_ORIGIN")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			BaseURL:  v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
			Project:  v.GetString("jira.project"),
		},
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			CORSOrigin: v.GetString("server.cors_origin"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	// An explicitly empty GITHUB_DOMAIN still means github.com
	if config.GitHub.Domain == "" {
		config.GitHub.Domain = DefaultGitHubDomain
	}

	return config, nil
}

// ValidateGitHubConfig validates the settings needed by commands that talk to
// GitHub with the configured token rather than a caller-supplied one.
func ValidateGitHubConfig(config *Config) error {
	if config.GitHub.Token == "" {
		return fmt.Errorf("missing required environment variables: [GITHUB_TOKEN]")
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.BaseURL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if config.Jira.Project == "" {
		missingVars = append(missingVars, "JIRA_PROJECT")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
