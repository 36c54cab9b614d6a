package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCmd_MemoryStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := &seedCmd{}
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))

	assert.Equal(t, subcommands.ExitSuccess, cmd.Execute(context.Background(), fs))
}

func TestSeedCmd_UnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("portfolio:\n  driver: sqlite\n"), 0644))

	cmd := &seedCmd{}
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", configPath}))

	assert.Equal(t, subcommands.ExitFailure, cmd.Execute(context.Background(), fs))
}

func TestPricesCmd_RequiresIDs(t *testing.T) {
	cmd := &pricesCmd{}
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(nil))

	assert.Equal(t, subcommands.ExitUsageError, cmd.Execute(context.Background(), fs))
}
