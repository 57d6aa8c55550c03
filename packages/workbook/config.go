package workbook

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	MaxSheetNameLength   = 31
	MaxDefinedNameLength = 255
	invalidSheetNameRune = `:\/?*[]`
)

// Config holds the settings a workbook is created with
type Config struct {
	// Limits bounds every coordinate of the workbook
	Limits Limits `yaml:"limits"`

	// Culture is a BCP 47 tag used for text conversions. empty means the
	// invariant culture.
	Culture string `yaml:"culture" validate:"omitempty,culture"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// MetricsEnabled turns recording of shift metrics on
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// DefaultConfig returns xlsx limits, the invariant culture and info logging
func DefaultConfig() Config {
	return Config{
		Limits:         DefaultLimits(),
		Culture:        "",
		LogLevel:       "info",
		MetricsEnabled: true,
	}
}

// ParseConfig reads YAML on top of the defaults and validates the result
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML file, applies WORKBOOK_* environment overrides
// and validates. an empty path yields the defaults plus overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("WORKBOOK_CULTURE"); v != "" {
		cfg.Culture = v
	}
	if v := os.Getenv("WORKBOOK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("WORKBOOK_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WORKBOOK_METRICS_ENABLED: %w", err)
		}
		cfg.MetricsEnabled = enabled
	}
	return nil
}

// Validate checks every field. failures are InvalidArgument errors naming
// the offending fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return newAppErrorf(InvalidArgument, "invalid config: %s", describeValidation(err))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// validate is the validator instance for configuration and names.
// initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("sheetname", validateSheetNameField)
	_ = validate.RegisterValidation("definedname", validateDefinedNameField)
	_ = validate.RegisterValidation("culture", validateCultureField)
}

func validateSheetNameField(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len([]rune(name)) > MaxSheetNameLength {
		return false
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return false
	}
	return !strings.ContainsAny(name, invalidSheetNameRune)
}

// validateDefinedNameField accepts names that start with a letter, "_" or
// "\", continue with letters, digits, "_", "." or "\", and cannot be read
// as a cell reference
func validateDefinedNameField(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	runes := []rune(name)
	if len(runes) == 0 || len(runes) > MaxDefinedNameLength {
		return false
	}
	if !(isAlpha(runes[0]) || runes[0] == charUnderscore || runes[0] == charBackslash || runes[0] > 0x7f) {
		return false
	}
	for _, ch := range runes {
		if !isNameChar(ch) {
			return false
		}
	}
	upper := strings.ToUpper(name)
	if isCellText(upper) || upper == "R" || upper == "C" {
		return false
	}
	return true
}

func validateCultureField(fl validator.FieldLevel) bool {
	_, err := ParseCulture(fl.Field().String())
	return err == nil
}

// ValidateSheetName checks a worksheet name: 1 to 31 characters, none of
// : \ / ? * [ ], and no apostrophe at either end
func ValidateSheetName(name string) error {
	if err := validate.Var(name, "sheetname"); err != nil {
		return newAppErrorf(InvalidArgument, "invalid worksheet name %q", name)
	}
	return nil
}

func validateDefinedName(name string) error {
	if err := validate.Var(name, "definedname"); err != nil {
		return newAppErrorf(InvalidArgument, "invalid name %q", name)
	}
	return nil
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
