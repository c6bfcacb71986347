package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/blockregen/internal/bridge"
	"github.com/udisondev/blockregen/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeBlocks(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blocks.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestValidate_DefaultFile(t *testing.T) {
	path := writeBlocks(t, config.DefaultBlocks())

	out, err := execute(t, "validate", "--strict=false", path)
	require.NoError(t, err)
	assert.Contains(t, out, "oak_tree")
	assert.Contains(t, out, "copper_ore")
	assert.Contains(t, out, "3 definitions loaded, 0 skipped")
}

func TestValidate_StrictFailsOnSkipped(t *testing.T) {
	path := writeBlocks(t, []byte(`{"definitions":[
		{"id":"ok","blockId":"Ore_Tin","interactedBlockId":"Rock"},
		{"id":"broken","blockId":"","interactedBlockId":"Rock"}
	]}`))

	out, err := execute(t, "validate", "--strict=false", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 definitions loaded, 1 skipped")

	_, err = execute(t, "validate", "--strict", path)
	require.Error(t, err)
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestMatch(t *testing.T) {
	path := writeBlocks(t, config.DefaultBlocks())

	out, err := execute(t, "match", path, "Ore_Copper_Rich")
	require.NoError(t, err)
	assert.Contains(t, out, "definition=copper_ore")

	out, err = execute(t, "match", path, "Rock_Stone_Depleted")
	require.NoError(t, err)
	assert.Contains(t, out, "definition=<none>")
	assert.Contains(t, out, "placeholder of definition=")
}

func TestSimulate_DepletesThenBlocks(t *testing.T) {
	path := writeBlocks(t, config.DefaultBlocks())

	out, err := execute(t, "simulate", "--gathers", "3", "--step", "1000", "--respawn=true", path, "Ore_Copper_Rich")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "action=RESTORE_SOURCE count=1/2 world=Ore_Copper_Rich")
	assert.Contains(t, lines[2], "action=DEPLETED_TO_WAITING count=2/2 world=Rock_Stone_Depleted respawnAt=47000ms")
	assert.Contains(t, lines[3], "action=BLOCKED_WAITING")
	assert.Equal(t, "matched=3 blocked=1 depletions=1 respawns=0 active=1", lines[4])
}

func TestSimulate_Respawns(t *testing.T) {
	path := writeBlocks(t, config.DefaultBlocks())

	out, err := execute(t, "simulate", "--gathers", "3", "--step", "50000", "--respawn=true", path, "Ore_Copper_Rich")
	require.NoError(t, err)
	assert.Contains(t, out, "t=150000ms respawned Ore_Copper_Rich")
	assert.Contains(t, out, "respawns=1")
}

func TestSimulate_UnknownBlock(t *testing.T) {
	path := writeBlocks(t, config.DefaultBlocks())

	_, err := execute(t, "simulate", "--gathers", "1", path, "Dirt")
	require.Error(t, err)
}

func TestHashToken(t *testing.T) {
	out, err := execute(t, "hash-token", "s3cret")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, bridge.VerifyToken(hash, "s3cret"))
	assert.Error(t, bridge.VerifyToken(hash, "other"))
}
