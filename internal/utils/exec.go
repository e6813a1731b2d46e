package utils

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Errors returned by ResolveExecutable.
var (
	ErrNoCommand     = errors.New("no command configured")
	ErrIsDirectory   = errors.New("path is a directory")
	ErrNotExecutable = errors.New("not executable")
)

// ResolveExecutable locates command, either as a file path or on PATH, and
// checks that it can be run. It returns the resolved path.
func ResolveExecutable(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", ErrNoCommand
	}

	path := command
	info, err := os.Stat(command)
	if err != nil {
		resolved, lookErr := exec.LookPath(command)
		if lookErr != nil {
			return "", fmt.Errorf("%s: %w", command, lookErr)
		}
		path = resolved
		if info, err = os.Stat(resolved); err != nil {
			return "", fmt.Errorf("%s: %w", resolved, err)
		}
	}
	if info.IsDir() {
		return path, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	if !isExecutable(path, info) {
		return path, fmt.Errorf("%s: %w", path, ErrNotExecutable)
	}
	return path, nil
}

func isExecutable(path string, info os.FileInfo) bool {
	if runtime.GOOS == "windows" {
		ext := strings.ToLower(filepath.Ext(path))
		return ext != "" && windowsExecutableExts()[ext]
	}
	return info.Mode().Perm()&0o111 != 0
}

// windowsExecutableExts parses PATHEXT into lowercase extensions with a
// leading dot.
func windowsExecutableExts() map[string]bool {
	exts := map[string]bool{}
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		pathext = ".COM;.EXE;.BAT;.CMD"
	}
	for _, ext := range strings.Split(pathext, ";") {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	return exts
}
