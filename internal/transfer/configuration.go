package transfer

import "strings"

const (
	defaultTokenSourceValueConstant        = "env:GITHUB_TOKEN"
	defaultRetryDelaySecondsConstant       = 15
	defaultInterTransferDelaySecsConstant  = 5
	defaultMaxAttemptsConstant             = DefaultMaxAttempts
)

// Configuration captures persistent settings for the transfer command.
type Configuration struct {
	TokenSource               string `mapstructure:"token_source"`
	APIBaseURL                string `mapstructure:"api_base_url"`
	MaxAttempts               int    `mapstructure:"max_attempts"`
	RetryDelaySeconds         int    `mapstructure:"retry_delay_seconds"`
	InterTransferDelaySeconds int    `mapstructure:"inter_transfer_delay_seconds"`
	CheckMembership           bool   `mapstructure:"check_membership"`
	DryRun                    bool   `mapstructure:"dry_run"`
	RequireApproval           bool   `mapstructure:"require_approval"`
}

// DefaultConfiguration returns baseline configuration values for the transfer command.
func DefaultConfiguration() Configuration {
	return Configuration{
		TokenSource:               defaultTokenSourceValueConstant,
		MaxAttempts:               defaultMaxAttemptsConstant,
		RetryDelaySeconds:         defaultRetryDelaySecondsConstant,
		InterTransferDelaySeconds: defaultInterTransferDelaySecsConstant,
		CheckMembership:           true,
		RequireApproval:           true,
	}
}

// Sanitize trims configured values and restores defaults for unset entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	if len(sanitized.TokenSource) == 0 {
		sanitized.TokenSource = defaultTokenSourceValueConstant
	}

	sanitized.APIBaseURL = strings.TrimSpace(configuration.APIBaseURL)

	if sanitized.MaxAttempts <= 0 {
		sanitized.MaxAttempts = defaultMaxAttemptsConstant
	}
	if sanitized.RetryDelaySeconds <= 0 {
		sanitized.RetryDelaySeconds = defaultRetryDelaySecondsConstant
	}
	if sanitized.InterTransferDelaySeconds <= 0 {
		sanitized.InterTransferDelaySeconds = defaultInterTransferDelaySecsConstant
	}

	return sanitized
}
