package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultInstance is used when LIVECUP_INSTANCE is unset.
const DefaultInstance = "default"

// HomeEnv relocates the livecup home away from ~/.livecup.
const HomeEnv = "LIVECUP_HOME"

// InstancePaths locates the on-disk state of one livecup instance. Several
// instances (a kiosk viewer and a barista console, say) can share a machine.
type InstancePaths struct {
	Name     string
	Home     string
	Logs     string
	LedgerDB string
}

// Root returns the livecup home directory.
func Root() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return ExpandHome(dir)
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".livecup")
}

// ForInstance lays out the paths of the named instance under Root.
func ForInstance(name string) InstancePaths {
	if name == "" {
		name = DefaultInstance
	}
	home := filepath.Join(Root(), "instances", name)
	return InstancePaths{
		Name:     name,
		Home:     home,
		Logs:     filepath.Join(home, "logs"),
		LedgerDB: filepath.Join(home, "ledger.db"),
	}
}

// Ensure creates the instance and log directories.
func (p InstancePaths) Ensure() error {
	for _, dir := range []string{p.Home, p.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
// "~user" forms are left alone.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
