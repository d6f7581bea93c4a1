// Package pipename resolves caller-facing endpoint strings into
// platform-level pipe identifiers. Two schemes are understood:
// unix://<socket path> and npipe://<pipe path>. Bare names are expanded
// to the platform default location.
package pipename

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Endpoint is a resolved pipe identifier.
type Endpoint struct {
	Scheme string // "unix" or "npipe"
	Path   string // socket file path, or Windows pipe path
}

// String returns the endpoint in scheme://path form.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s://%s", e.Scheme, e.Path)
}

// Resolve parses an endpoint string. Unknown schemes are rejected; a
// string without a scheme is treated as a pipe name and expanded with
// Default.
func Resolve(endpoint string) (Endpoint, error) {
	switch {
	case strings.HasPrefix(endpoint, "unix://"):
		path := strings.TrimPrefix(endpoint, "unix://")
		if path == "" {
			return Endpoint{}, fmt.Errorf("empty unix socket path in endpoint %q", endpoint)
		}
		return Endpoint{Scheme: "unix", Path: path}, nil
	case strings.HasPrefix(endpoint, "npipe://"):
		path := normalizePipePath(strings.TrimPrefix(endpoint, "npipe://"))
		if path == "" {
			return Endpoint{}, fmt.Errorf("empty named pipe path in endpoint %q", endpoint)
		}
		return Endpoint{Scheme: "npipe", Path: path}, nil
	case strings.Contains(endpoint, "://"):
		return Endpoint{}, fmt.Errorf("unsupported endpoint scheme in %q", endpoint)
	case endpoint == "":
		return Endpoint{}, fmt.Errorf("empty endpoint")
	default:
		return Resolve(Default(endpoint))
	}
}

// normalizePipePath fixes the path forms that survive URL-style prefix
// stripping: npipe:////./pipe/name → //./pipe/name.
func normalizePipePath(p string) string {
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "./pipe/") {
		return "//" + p
	}
	if !strings.HasPrefix(p, `\\.\`) && !strings.HasPrefix(p, "//./") {
		return "//./pipe/" + p
	}
	return p
}

// Default returns the platform default endpoint for a bare pipe name.
func Default(name string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("npipe:////./pipe/%s", name)
	}
	return fmt.Sprintf("unix://%s", filepath.Join(runtimeDir(), name+".sock"))
}

// Random returns an endpoint suitable for an anonymous channel.
func Random() string {
	return Default(fmt.Sprintf("pipelink-%s", uuid.NewString()[:8]))
}

func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
