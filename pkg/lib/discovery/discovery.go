// Package discovery locates the companion executable next to the host.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

// DefaultCompanionName is the file name of the background renderer, without
// platform suffix.
const DefaultCompanionName = "motivation-background"

// Options tunes where the companion is looked for.
type Options struct {
	// Name of the companion executable. Defaults to DefaultCompanionName.
	Name string
	// DevPaths are directories, relative to the host directory unless
	// absolute, tried in order when the companion is not next to the host.
	DevPaths []string
}

// HostExecutable returns the resolved path of the running executable.
func HostExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}

// ExecutableName returns name with the platform executable suffix.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// Discover looks for the companion in the directory of hostExecutable and
// then in the configured development locations. It never returns an error:
// every outcome is a DiscoveryResult.
func Discover(hostExecutable string, opts Options) lib.DiscoveryResult {
	name := opts.Name
	if name == "" {
		name = DefaultCompanionName
	}
	if strings.ContainsAny(name, `/\`) {
		return lib.Invalid(fmt.Sprintf("companion name %q must not contain a path separator", name))
	}
	if hostExecutable == "" {
		return lib.Invalid("host executable path is empty")
	}

	host, err := filepath.Abs(hostExecutable)
	if err != nil {
		return lib.Invalid(fmt.Sprintf("resolve host path: %v", err))
	}
	hostInfo, err := os.Stat(host)
	if err != nil {
		return lib.Invalid(fmt.Sprintf("host executable %s: %v", host, err))
	}

	hostDir := filepath.Dir(host)
	dirs := append([]string{hostDir}, resolveDirs(hostDir, opts.DevPaths)...)
	file := ExecutableName(name)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, file)
		info, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return lib.Invalid(fmt.Sprintf("stat %s: %v", candidate, err))
		}
		if info.IsDir() {
			return lib.Invalid(fmt.Sprintf("%s is a directory", candidate))
		}
		if !info.Mode().IsRegular() {
			return lib.Invalid(fmt.Sprintf("%s is not a regular file", candidate))
		}
		if os.SameFile(info, hostInfo) {
			return lib.Invalid(fmt.Sprintf("%s resolves to the host executable", candidate))
		}
		// Execute permission is left to spawn, which reports it as
		// PermissionDenied.
		return lib.Found(candidate)
	}

	return lib.NotFound()
}

func resolveDirs(base string, dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(base, d)
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}
