// Package utils holds small filesystem helpers for the command line.
package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsDirectory checks if a path is a directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists checks if a path is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// YAMLFilesInDirectory returns the .yaml and .yml files in dir, sorted.
// Subdirectories are only searched when recursive is set.
func YAMLFilesInDirectory(dir string, recursive bool) ([]string, error) {
	if !IsDirectory(dir) {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isYAML(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ExpandFilePaths resolves files, directories and glob patterns into a list
// of files. Directories contribute their YAML files.
func ExpandFilePaths(paths []string, recursive bool) ([]string, error) {
	var expanded []string
	for _, path := range paths {
		matches := []string{path}
		if strings.ContainsAny(path, "*?[") {
			var err error
			if matches, err = filepath.Glob(path); err != nil {
				return nil, fmt.Errorf("error expanding glob pattern %s: %w", path, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %s", path)
			}
		}

		for _, match := range matches {
			switch {
			case IsDirectory(match):
				files, err := YAMLFilesInDirectory(match, recursive)
				if err != nil {
					return nil, fmt.Errorf("error getting YAML files from directory %s: %w", match, err)
				}
				expanded = append(expanded, files...)
			case FileExists(match):
				expanded = append(expanded, match)
			default:
				return nil, fmt.Errorf("file not found: %s", match)
			}
		}
	}
	return expanded, nil
}
