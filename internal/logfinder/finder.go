// Package logfinder provides EverQuest log directory and file detection.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "EQPUSH_LOGDIR"

// LogFilePattern is the glob matching per-character log files.
const LogFilePattern = "eqlog*.txt"

// Sentinel errors.
var (
	ErrLogDirNotFound   = errors.New("log directory not found")
	ErrNoLogFiles       = errors.New("no log files found")
	ErrNoCharacterName  = errors.New("no character name in log file name")
	characterNameRegexp = regexp.MustCompile(`eqlog_([A-Za-z]*?)_`)
)

// DefaultLogDirs returns candidate EverQuest log directories in priority order.
// Only Windows installs are known; other platforms return nil.
func DefaultLogDirs() []string {
	var dirs []string
	if public := os.Getenv("PUBLIC"); public != "" {
		dirs = append(dirs, filepath.Join(public, "Daybreak Game Company", "Installed Games", "EverQuest", "Logs"))
	}
	if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
		dirs = append(dirs,
			filepath.Join(pf, "Steam", "steamapps", "common", "Everquest F2P", "Logs"),
			filepath.Join(pf, "Sony", "EverQuest", "Logs"),
		)
	}
	return dirs
}

// FindLogDir returns the EverQuest log directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. EQPUSH_LOGDIR environment variable
//  3. Auto-detect from DefaultLogDirs()
//
// Explicit and environment directories only need to exist; auto-detected
// candidates must already hold at least one log file.
// The returned path has symlinks resolved.
func FindLogDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory does not exist", ErrLogDirNotFound)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	for _, dir := range DefaultLogDirs() {
		if resolved := resolveDir(dir); resolved != "" && hasLogFiles(resolved) {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// logCandidate caches the stat result so sorting never races a deletion.
type logCandidate struct {
	path    string
	modTime int64
}

// FindLatestLogFile returns the most recently modified eqlog file in dir.
// Returns ErrNoLogFiles if there is none.
func FindLatestLogFile(dir string) (string, error) {
	matches, err := globLogFiles(dir)
	if err != nil {
		return "", fmt.Errorf("globbing log files: %w", err)
	}

	candidates := make([]logCandidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, logCandidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", ErrNoLogFiles
	}

	// Newest first; ties broken by name so the choice is stable.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime != candidates[j].modTime {
			return candidates[i].modTime > candidates[j].modTime
		}
		return candidates[i].path > candidates[j].path
	})

	return candidates[0].path, nil
}

// IsLogFile reports whether the base name of path matches LogFilePattern.
func IsLogFile(path string) bool {
	ok, _ := doublestar.Match(LogFilePattern, filepath.Base(path))
	return ok
}

// CharacterName extracts the character from a log file name of the form
// eqlog_<Name>_<server>.txt.
func CharacterName(path string) (string, error) {
	m := characterNameRegexp.FindStringSubmatch(filepath.Base(path))
	if m == nil || m[1] == "" {
		return "", ErrNoCharacterName
	}
	return m[1], nil
}

// resolveDir resolves symlinks and returns the path if it is a directory,
// empty string otherwise.
func resolveDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	return resolved
}

func hasLogFiles(dir string) bool {
	matches, err := globLogFiles(dir)
	return err == nil && len(matches) > 0
}

// globLogFiles matches LogFilePattern inside dir. Matching runs on an
// fs.FS rooted at dir, so glob characters in dir itself are literal.
func globLogFiles(dir string) ([]string, error) {
	names, err := doublestar.Glob(os.DirFS(dir), LogFilePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, filepath.FromSlash(name))
	}
	return paths, nil
}
