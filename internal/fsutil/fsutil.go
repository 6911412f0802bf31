// Package fsutil provides file and path utility functions for the mix
// service: unique temporary artifact names, directory creation, filename
// sanitizing, and human-readable formatting for logs.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Directory permissions for created paths.
const defaultDirPermissions = 0o750

// Temp name layout: <prefix>-<nanosecond token>-<uuid fragment><ext>.
// Uniqueness across concurrent requests relies on this name, not on locking.
const (
	tempNameFormat  = "%s-%d-%s%s"
	uuidFragmentLen = 8
)

// Time formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

// Error message formats.
const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// TempFileName allocates a unique path under dir for a transient audio
// artifact. The file itself is not created; the caller writes it and owns
// its deletion.
func TempFileName(dir, prefix, ext string) string {
	fragment := uuid.NewString()[:uuidFragmentLen]

	name := fmt.Sprintf(
		tempNameFormat,
		SanitizeFilename(prefix),
		time.Now().UnixNano(),
		fragment,
		ext,
	)

	return filepath.Join(dir, name)
}

// EnsureDir ensures a directory exists at the given path, creating it if it
// doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		// MkdirAll is used to create parent directories as needed.
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most
// filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
		" ", "_",
	)

	return replacer.Replace(filename)
}

// FormatDuration formats a duration in seconds as a human-readable string
// (e.g., "1h 15m", "5m 30.5s", "45.2s").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}
