// Package email renders and sends the transactional emails this service
// owns. Templates are plain HTML files with {{PLACEHOLDER}} markers replaced
// by string substitution; rendering never calls the network or the store.
package email

import (
	"fmt"
	"log/slog"
	"os"
)

// LoadTemplate reads the first readable template file from paths, tried in
// order. A missing template is an error value, not a panic: delivery of a
// kind whose template is unavailable fails per item and the daemon keeps
// running.
func LoadTemplate(logger *slog.Logger, paths []string) (string, error) {
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed reading template", "path", path, "error", err)
			}
			continue
		}
		logger.Info("loaded template", "path", path)
		return string(raw), nil
	}
	return "", fmt.Errorf("no template found in any of %d candidate paths %v", len(paths), paths)
}
