package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/framerhq/framer/internal/logger"
	"github.com/framerhq/framer/types"
)

const (
	configName = ".framer"
	envPrefix  = "FRAMER"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate caches struct info for config validation.
var validate = validator.New()

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A .env file may carry the backend URL and API keys; missing is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if cfgFlag := viper.GetString("config"); cfgFlag != "" {
		viper.SetConfigFile(cfgFlag)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to decode config into struct: %v\n", err)
		os.Exit(1)
	}
	if err := validate.Struct(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetBasePath(DataDirPath())
	logger.SetVersion(version)
	logger.SetCommand(strings.Join(os.Args[1:], " "))
}

func setDefaults() {
	viper.SetDefault("project.rootDir", ".")
	viper.SetDefault("project.dataDir", ".framer")
	viper.SetDefault("data.file", "framer.json")
	viper.SetDefault("data.format", "json")
	viper.SetDefault("backend.baseUrl", "http://localhost:8000")
	viper.SetDefault("backend.requestTimeoutSeconds", 60)
	viper.SetDefault("telemetry.enabled", false)
}

// GetConfig returns the loaded application configuration.
func GetConfig() types.AppConfig {
	return GlobalAppConfig
}

// DataFilePath returns the full path to the snapshot file.
func DataFilePath() string {
	cfg := GetConfig()
	return filepath.Join(cfg.Project.RootDir, cfg.Project.DataDir, cfg.Data.File)
}

// DataDirPath returns the full path to the data directory.
func DataDirPath() string {
	cfg := GetConfig()
	return filepath.Join(cfg.Project.RootDir, cfg.Project.DataDir)
}
