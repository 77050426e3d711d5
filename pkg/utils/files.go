package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// CollectSources returns the files with extension ext (".jack" or ".vm")
// named by path: the file itself, or every matching file directly inside
// the directory, sorted by name.
func CollectSources(path, ext string) ([]string, error) {
	fullPath, _, err := GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(fullPath) != ext {
			return nil, fmt.Errorf("%s is not a %s file", path, ext)
		}
		return []string{fullPath}, nil
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			files = append(files, filepath.Join(fullPath, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", ext, path)
	}
	sort.Strings(files)
	return files, nil
}

// ClassName is the file name without directory or extension.
func ClassName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath places a file named like src with extension ext into outDir,
// or next to src when outDir is empty.
func OutputPath(src, outDir, ext string) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, ClassName(src)+ext)
}
