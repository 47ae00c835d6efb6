package file

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"
)

// QueryFiles walks root and returns every file carrying one of the given
// extensions. Hidden files and directories are skipped.
func QueryFiles(root string, extensions []string) ([]string, error) {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, strings.ToLower(ext))
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Log the error but continue walking
			log.Printf("Error accessing path %s: %v", path, err)
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		if len(normalized) == 0 {
			files = append(files, path)
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range normalized {
			if ext == want {
				files = append(files, path)
				break
			}
		}
		return nil
	})

	return files, err
}

// MatchingFiles walks root and returns every file whose base name matches
// the glob pattern.
func MatchingFiles(root, pattern string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return err
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}
