package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// AppName names the per-user config and data directories.
const AppName = "pinyinserve"

// PathResolver finds config and dictionary files relative to the places a
// user or packager may have put them.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver determines the executable, home and config locations.
func NewPathResolver() *PathResolver {
	execDir, err := GetExecutableDir()
	if err != nil {
		log.Warnf("Could not determine executable directory: %v", err)
		execDir = "."
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}
	pr := &PathResolver{
		executableDir: execDir,
		homeDir:       homeDir,
		configDir:     platformConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", execDir, pr.configDir)
	return pr
}

// platformConfigDir returns the appropriate config directory for the platform
func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux", "darwin":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, "."+AppName)
	}
}

// ConfigDir returns the preferred config directory
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// DataDir is where dictionaries are looked up when not found elsewhere.
func (pr *PathResolver) DataDir() string {
	return filepath.Join(pr.configDir, "dict")
}

// SearchPaths lists the directories a relative dictionary name is tried in.
func (pr *PathResolver) SearchPaths() []string {
	paths := []string{}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return append(paths,
		pr.executableDir,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		pr.DataDir(),
	)
}

// ResolveFile returns the first existing location of name. Absolute names are
// only checked, never searched.
func (pr *PathResolver) ResolveFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		if FileExists(name) {
			return name, nil
		}
		return "", os.ErrNotExist
	}
	return FindFileInPaths(name, pr.SearchPaths())
}

// FindFileInPaths searches for a file in multiple possible locations
func FindFileInPaths(filename string, searchPaths []string) (string, error) {
	for _, searchPath := range searchPaths {
		fullPath := filepath.Join(searchPath, filename)
		if stat, err := os.Stat(fullPath); err == nil && !stat.IsDir() {
			return fullPath, nil
		}
		log.Debugf("Dictionary candidate not found: %s", fullPath)
	}
	return "", os.ErrNotExist
}

// RuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) RuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()
	info := map[string]string{
		"executable_dir": pr.executableDir,
		"current_dir":    cwd,
		"home_dir":       pr.homeDir,
		"config_dir":     pr.configDir,
		"data_dir":       pr.DataDir(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
	}
	for _, envVar := range []string{"XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
