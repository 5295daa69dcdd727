package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	s3 := cfg.S3

	if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
		return fmt.Errorf("s3: access_key_id and secret_access_key must be set together")
	}
	if s3.Anonymous && s3.AccessKeyID != "" {
		return fmt.Errorf("s3: anonymous access cannot be combined with static credentials")
	}
	if s3.Presign && s3.Anonymous {
		return fmt.Errorf("s3: presign requires credentials; set anonymous to false")
	}

	w := cfg.WebDAV
	if w.Port == -1 {
		return fmt.Errorf("webdav.port: -1 (ephemeral) is not allowed in configuration")
	}
	if w.Port < 0 || w.Port > 65535 {
		return fmt.Errorf("webdav.port: %d is out of range", w.Port)
	}
	if w.ReadTimeout < 0 || w.WriteTimeout < 0 || w.IdleTimeout < 0 || w.ShutdownTimeout < 0 {
		return fmt.Errorf("webdav: timeouts must not be negative")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == w.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by webdav.port", w.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
