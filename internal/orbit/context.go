// Package orbit holds process-wide configuration and the reserved file
// names shared by the catalog, installer, and manifest layers.
//
// The Context value is built once at startup from the environment and then
// threaded through calls. There are no package-level singletons: two
// contexts pointing at different homes can coexist in one process, which
// is what the tests rely on.
package orbit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Reserved file names. None of these participate in checksum input.
const (
	ManifestFile = "Orbit.toml"
	LockFile     = "Orbit.lock"
	SumFile      = ".orbit-checksum"
	MetadataFile = ".orbit-metadata"
)

// Environment variable names recognized at startup.
const (
	EnvHome          = "ORBIT_HOME"
	EnvCache         = "ORBIT_CACHE"
	EnvQueue         = "ORBIT_QUEUE"
	EnvDownloadList  = "ORBIT_DOWNLOAD_LIST"
	EnvWinLiteralCmd = "ORBIT_WIN_LITERAL_CMD"
	EnvProtocol      = "ORBIT_PROTOCOL"
	EnvEditor        = "EDITOR"
)

// defaultHomeDir is the directory under the user home used when ORBIT_HOME
// is unset.
const defaultHomeDir = ".orbit"

// Context owns the persistent state roots for one invocation.
type Context struct {
	// Home is the root of persistent state. Created if missing.
	Home string

	// CachePath holds installed, content-addressed IP releases.
	CachePath string

	// QueuePath holds downloaded, not-yet-installed IP releases.
	QueuePath string

	// Protocol is the user-configured download command. Empty means no
	// automatic fetching is possible.
	Protocol string

	// Editor is the editor command for interactive subcommands.
	Editor string

	// WinLiteralCmd disables .bat auto-matching for spawned commands on
	// Windows.
	WinLiteralCmd bool
}

// NewContext builds a Context from the environment, creating the home
// directory (and its cache/queue subdirectories) if they do not exist.
func NewContext() (*Context, error) {
	home := os.Getenv(EnvHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		home = filepath.Join(userHome, defaultHomeDir)
	}
	return NewContextAt(home)
}

// NewContextAt builds a Context rooted at an explicit home directory.
// Overrides from ORBIT_CACHE and ORBIT_QUEUE still apply.
func NewContextAt(home string) (*Context, error) {
	if info, err := os.Stat(home); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("orbit home %s exists and is not a directory", home)
	}

	c := &Context{
		Home:          home,
		CachePath:     filepath.Join(home, "cache"),
		QueuePath:     filepath.Join(home, "queue"),
		Protocol:      os.Getenv(EnvProtocol),
		Editor:        os.Getenv(EnvEditor),
		WinLiteralCmd: os.Getenv(EnvWinLiteralCmd) != "",
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv(EnvQueue); v != "" {
		c.QueuePath = v
	}

	for _, dir := range []string{c.Home, c.CachePath, c.QueuePath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return c, nil
}

// CommandName resolves a spawned command name for the host platform.
// On Windows a bare name is matched against a sibling .bat file unless the
// literal-command override is set.
func (c *Context) CommandName(name string) string {
	if runtime.GOOS != "windows" || c.WinLiteralCmd {
		return name
	}
	if filepath.Ext(name) != "" {
		return name
	}
	if _, err := os.Stat(name + ".bat"); err == nil {
		return name + ".bat"
	}
	return name
}

// IsReserved reports whether a file name is excluded from checksum input
// and from installation copies' content view.
func IsReserved(name string) bool {
	switch name {
	case SumFile, MetadataFile:
		return true
	}
	return false
}

// IsVCSDir reports whether a directory name holds version-control metadata.
func IsVCSDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg":
		return true
	}
	return false
}
