package scenario

import "fmt"

// ConfigErrorKind enumerates the validation failure classes a Scenario can
// raise, matching the loader-facing taxonomy so cmd/vmtsim can map a Kind to
// a stable exit code.
type ConfigErrorKind string

const (
	KindSchemaVersionUnsupported ConfigErrorKind = "schema_version_unsupported"
	KindInvalidWeightSum         ConfigErrorKind = "invalid_weight_sum"
	KindInvalidUtilityParams     ConfigErrorKind = "invalid_utility_params"
	KindSubsistenceViolation     ConfigErrorKind = "subsistence_violation"
	KindDensityOutOfRange        ConfigErrorKind = "density_out_of_range"
	KindInventoryNegative        ConfigErrorKind = "inventory_negative"
	KindRegimeUnknown            ConfigErrorKind = "regime_unknown"
	KindInvalidParam             ConfigErrorKind = "invalid_param"
)

// ConfigError is the typed validation error every Scenario rejection uses.
type ConfigError struct {
	Kind   ConfigErrorKind
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scenario config: %s: %s", e.Kind, e.Detail)
}

func newConfigError(kind ConfigErrorKind, detail string) *ConfigError {
	return &ConfigError{Kind: kind, Detail: detail}
}
