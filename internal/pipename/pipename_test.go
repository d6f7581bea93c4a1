package pipename

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve tests endpoint string parsing across schemes
func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Endpoint
		wantErr  bool
	}{
		{
			name:     "unix socket path",
			input:    "unix:///tmp/app.sock",
			expected: Endpoint{Scheme: "unix", Path: "/tmp/app.sock"},
		},
		{
			name:     "npipe full path",
			input:    "npipe:////./pipe/myapp",
			expected: Endpoint{Scheme: "npipe", Path: "//./pipe/myapp"},
		},
		{
			name:     "npipe bare name",
			input:    "npipe://myapp",
			expected: Endpoint{Scheme: "npipe", Path: "//./pipe/myapp"},
		},
		{
			name:    "empty unix path",
			input:   "unix://",
			wantErr: true,
		},
		{
			name:    "empty npipe path",
			input:   "npipe://",
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			input:   "tcp://127.0.0.1:8080",
			wantErr: true,
		},
		{
			name:    "empty endpoint",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestResolve_BareName tests that a scheme-less name expands to the platform default
func TestResolve_BareName(t *testing.T) {
	got, err := Resolve("myapp")
	require.NoError(t, err)

	if runtime.GOOS == "windows" {
		assert.Equal(t, "npipe", got.Scheme)
		assert.Equal(t, "//./pipe/myapp", got.Path)
	} else {
		assert.Equal(t, "unix", got.Scheme)
		assert.True(t, strings.HasSuffix(got.Path, "myapp.sock"), "got %q", got.Path)
	}
}

// TestEndpoint_String tests the scheme://path rendering
func TestEndpoint_String(t *testing.T) {
	ep := Endpoint{Scheme: "unix", Path: "/run/app.sock"}
	assert.Equal(t, "unix:///run/app.sock", ep.String())
}

// TestDefault tests the per-platform default location for a bare name
func TestDefault(t *testing.T) {
	def := Default("svc")
	if runtime.GOOS == "windows" {
		assert.Equal(t, "npipe:////./pipe/svc", def)
	} else {
		assert.True(t, strings.HasPrefix(def, "unix://"), "got %q", def)
		assert.True(t, strings.HasSuffix(def, "svc.sock"), "got %q", def)
	}

	// Defaults must round-trip through Resolve.
	_, err := Resolve(def)
	assert.NoError(t, err)
}

// TestRandom tests that generated endpoints are distinct and resolvable
func TestRandom(t *testing.T) {
	a := Random()
	b := Random()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "pipelink-")

	_, err := Resolve(a)
	assert.NoError(t, err)
}
