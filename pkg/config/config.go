// pkg/config/config.go

// Package config layers the tool's own settings: built-in defaults, then
// /etc/iaso/config.yaml, then the user config dir, then environment
// variables (IASO_*). Flags override all of it at the command layer.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/shared"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings is the resolved tool configuration.
type Settings struct {
	RegistryRoot string `mapstructure:"registry_root"`
	BackupRoot   string `mapstructure:"backup_root"`
	PlanDir      string `mapstructure:"plan_dir"`
}

// Load resolves settings. Missing config files are fine; defaults apply.
func Load(log *zap.Logger) (*Settings, error) {
	// Site-wide environment defaults, if present.
	if err := godotenv.Load(shared.IasoEnvFile); err == nil {
		log.Debug("Loaded environment file", zap.String("path", shared.IasoEnvFile))
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(shared.IasoConfigDir)
	if dir := userConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetDefault("registry_root", shared.DefaultRegistryRoot)
	v.SetDefault("backup_root", shared.DefaultBackupRoot)
	v.SetDefault("plan_dir", filepath.Join(shared.IasoConfigDir, "plans"))

	v.SetEnvPrefix(strings.ToUpper(shared.IasoID))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, shared.IasoID)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", shared.IasoID)
}
