// Package testutil provides the shared harness for integration tests: it
// lays fixture source trees out on disk, runs a full compilation through the
// real application wiring, and captures output and logs.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/rejig/internal/app"
	"github.com/vk/rejig/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Result holds the outcomes of a harness compilation run.
type Result struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles materializes the given relative-path/content pairs under a
// fresh temporary directory and returns its path.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunCompileTest compiles entry (a path relative to the fixture root) from
// the given fixture files through the full application stack, using a
// default background context.
func RunCompileTest(t *testing.T, files map[string]string, entry string) *Result {
	t.Helper()
	return RunCompileTestWithContext(context.Background(), t, files, entry)
}

// RunCompileTestWithContext is RunCompileTest with a caller-provided context.
func RunCompileTestWithContext(ctx context.Context, t *testing.T, files map[string]string, entry string) *Result {
	t.Helper()

	dir := WriteFiles(t, files)

	appConfig, err := app.NewConfig(app.Config{
		SourcePath: filepath.Join(dir, entry),
		ConfigPath: configPath(dir, files),
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	var logBuf SafeBuffer
	a := app.New(&out, &logBuf, appConfig, hcl.NewLoader())
	runErr := a.Run(ctx, appConfig)

	return &Result{
		Output:    out.String(),
		LogOutput: logBuf.String(),
		Err:       runErr,
		App:       a,
	}
}

// configPath picks up a fixture pipeline configuration when the test
// supplies one under the conventional name.
func configPath(dir string, files map[string]string) string {
	if _, ok := files["rejig.hcl"]; ok {
		return filepath.Join(dir, "rejig.hcl")
	}
	return ""
}
