package helper

import (
	"fmt"
	"os"
)

// CreateFolder creates the directory (and parents) if missing
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %v", path, err)
	}
	return nil
}
