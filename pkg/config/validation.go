package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus custom rules
// that cannot be expressed declaratively.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The tag becomes part of the sentinel lines; whitespace would break
	// locating the block later.
	if strings.ContainsAny(cfg.Exports.Tag, " \t\n") {
		return fmt.Errorf("exports.tag: must not contain whitespace (got %q)", cfg.Exports.Tag)
	}

	// Mount options are a comma-separated list; a stray nfsvers here would
	// conflict with run.nfs_version.
	if strings.Contains(cfg.Run.MountOptions, "nfsvers=") {
		return fmt.Errorf("run.mount_options: set the NFS version via run.nfs_version, not nfsvers=")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
