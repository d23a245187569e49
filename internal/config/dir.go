package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// configDirName is a directory in the user's config directory where jira-chat configuration is stored
	configDirName string = "jira-chat"
)

func MustJiraChatConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Errorf("cannot obtain user config dir: %w", err))
	}

	jiraChatConfigDir := filepath.Join(configDir, configDirName)
	return jiraChatConfigDir
}
