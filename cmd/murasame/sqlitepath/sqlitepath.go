// Package sqlitepath resolves the transcript database used by the
// transcript commands.
package sqlitepath

import (
	"fmt"
	"os"

	"github.com/papercomputeco/murasame/pkg/config"
)

// ResolveSQLitePath returns override when set, and otherwise the
// transcript.path of the configuration at configPath (defaults and
// MURASAME_* overrides apply). The file must exist.
func ResolveSQLitePath(override, configPath string) (string, error) {
	path := override
	if path == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", err
		}
		path = cfg.Transcript.Path
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("transcript database %s: %w", path, err)
	}
	return path, nil
}
