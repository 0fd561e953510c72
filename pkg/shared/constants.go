// pkg/shared/constants.go

package shared

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	// IasoID is the directory/service identifier used for logs, config and state.
	IasoID = "iaso"

	// System paths. Per-user fallbacks are resolved at runtime (see logger.PlatformLogPaths).
	IasoLogDir    = "/var/log/iaso"
	IasoConfigDir = "/etc/iaso"
	IasoEnvFile   = "/etc/iaso/iaso.env"

	// DefaultBackupRoot is where pre-remediation backups land unless a plan
	// or flag overrides it.
	DefaultBackupRoot = "/var/backups/iaso"

	// DefaultRegistryRoot is the root of the file-backed settings store.
	DefaultRegistryRoot = "/var/lib/iaso/registry"
)
