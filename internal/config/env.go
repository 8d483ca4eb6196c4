package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// envAliases lets deployments reuse the variable names of the Node service
// and the Google SDKs. Earlier names win.
var envAliases = map[string][]string{
	"AUDIT_EXTRACTION_API_KEY": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"AUDIT_ENVIRONMENT":        {"APP_ENV", "NODE_ENV"},
}

// envFiles lists the .env files read at startup: the working directory
// first, then the data directory next to invoice-audit.yaml.
func envFiles(dataDir string) []string {
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	return []string{".env", filepath.Join(dataDir, ".env")}
}

// LoadEnvFiles exports the variables of every existing .env file that are
// not already set in the environment. It returns the files it read.
func LoadEnvFiles(dataDir string) ([]string, error) {
	var loaded []string
	for _, path := range envFiles(dataDir) {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		vars, err := readEnvFile(path)
		if err != nil {
			return loaded, err
		}
		for key, value := range vars {
			if _, set := os.LookupEnv(key); !set {
				os.Setenv(key, value)
			}
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// readEnvFile parses a dotenv file. Keys come back upper-cased since viper
// folds them to lower case.
func readEnvFile(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to read "+path)
	}

	vars := make(map[string]string, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		vars[strings.ToUpper(key)] = v.GetString(key)
	}
	return vars, nil
}

// lookupEnv returns the first non-empty value of key or one of its aliases.
func lookupEnv(key string) string {
	for _, name := range append([]string{key}, envAliases[key]...) {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}
