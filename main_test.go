package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	"storagekit/internal/config"
	"storagekit/internal/platform"
)

func newTestEnv(t *testing.T) (*appEnv, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{Picker: config.PickerConfig{Provider: config.ProviderManaged}}
	sel, err := platform.Select(context.Background(), platform.Options{Config: cfg})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &appEnv{
		cfg:     cfg,
		logger:  zap.NewNop(),
		manager: config.NewManagerWithPath(filepath.Join(t.TempDir(), "config.json"), nil),
		storage: sel,
		marks:   bookmark.NewMemoryStore(),
		in:      bufio.NewReader(strings.NewReader("")),
		out:     out,
	}, out
}

func TestFileTypes(t *testing.T) {
	types := fileTypes(" txt, .PNG ,,")
	require.Len(t, types, 2)
	assert.Equal(t, []string{"*.txt"}, types[0].Patterns)
	assert.Equal(t, []string{"*.PNG"}, types[1].Patterns)
	assert.Empty(t, fileTypes(""))
}

func TestCommands_BookmarkLifecycle(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("remember me"), 0o644))

	require.NoError(t, runCommand(ctx, env, "bookmark", []string{"add", "notes", file}))
	assert.Contains(t, out.String(), "notes -> "+file)

	out.Reset()
	require.NoError(t, runCommand(ctx, env, "bookmark", []string{"list"}))
	assert.Contains(t, out.String(), "notes")
	assert.Contains(t, out.String(), "local")

	out.Reset()
	require.NoError(t, runCommand(ctx, env, "bookmark", []string{"open", "notes"}))
	assert.Contains(t, out.String(), file)

	require.NoError(t, runCommand(ctx, env, "bookmark", []string{"rm", "notes"}))
	assert.Error(t, runCommand(ctx, env, "bookmark", []string{"open", "notes"}))
}

func TestCommands_ListCatResolve(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	require.NoError(t, runCommand(ctx, env, "ls", []string{dir}))
	assert.Contains(t, out.String(), "a.txt")

	out.Reset()
	require.NoError(t, runCommand(ctx, env, "cat", []string{file}))
	assert.Equal(t, "hello", out.String())

	out.Reset()
	require.NoError(t, runCommand(ctx, env, "resolve-file", []string{file}))
	assert.Contains(t, out.String(), file)

	assert.Error(t, runCommand(ctx, env, "resolve-folder", []string{file}))
	assert.Error(t, runCommand(ctx, env, "cat", []string{dir}))
}

func TestCommands_PickersWithoutChooser(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	assert.Error(t, runCommand(ctx, env, "open", nil), "managed provider without a chooser cannot pick")
	assert.Error(t, runCommand(ctx, env, "frobnicate", nil))
	assert.ErrorIs(t, runCommand(ctx, env, "ls", nil), errUsage)
}
