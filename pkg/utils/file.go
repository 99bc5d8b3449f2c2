package utils

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// CreateFolder ensures every given directory exists.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if folder == "" {
			continue
		}
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFile deletes the given paths after an optional delay in seconds.
// Used for temp files saved from multipart uploads; failures are only logged.
func RemoveFile(delaySecond int, paths ...string) {
	if delaySecond > 0 {
		time.Sleep(time.Duration(delaySecond) * time.Second)
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Failed to remove temp file %s: %v", path, err)
		}
	}
}
