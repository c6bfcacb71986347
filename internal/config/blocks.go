package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/udisondev/blockregen/internal/model"
)

// SkippedEntry describes a definition entry dropped during parsing.
type SkippedEntry struct {
	Index  int
	ID     string
	Reason string
}

// BlocksLoader reads the block regeneration file from disk.
// Load never fails: problems fall back to defaults or drop single entries.
type BlocksLoader struct {
	path string
}

// NewBlocksLoader creates a loader for path.
func NewBlocksLoader(path string) *BlocksLoader {
	return &BlocksLoader{path: path}
}

// Path returns the file the loader reads.
func (l *BlocksLoader) Path() string {
	return l.path
}

// Load reads and parses the file.
func (l *BlocksLoader) Load() model.Config {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("block regen config missing, using defaults", "path", l.path)
		} else {
			slog.Warn("reading block regen config failed, using defaults", "path", l.path, "error", err)
		}
		return model.DefaultConfig()
	}

	cfg, skipped, err := ParseBlocks(data)
	if err != nil {
		slog.Warn("parsing block regen config failed, using defaults", "path", l.path, "error", err)
		return model.DefaultConfig()
	}

	for _, s := range skipped {
		slog.Warn("skipped block regen definition",
			"path", l.path,
			"index", s.Index,
			"id", s.ID,
			"reason", s.Reason)
	}

	slog.Info("block regen config loaded",
		"path", l.path,
		"enabled", cfg.Enabled,
		"definitions", len(cfg.Definitions),
		"skipped", len(skipped))

	return cfg
}

// ParseBlocks decodes a block regeneration document. Each definition entry
// is decoded by the canonical or the alias decoder depending on which keys
// it carries; bad entries are reported in skipped. An error is returned
// only when the document itself is not a JSON object.
func ParseBlocks(data []byte) (model.Config, []SkippedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return model.DefaultConfig(), nil, fmt.Errorf("decoding json: %w", err)
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return model.DefaultConfig(), nil, fmt.Errorf("config root must be an object")
	}

	cfg := model.Config{
		Version:              max(1, intField(obj, "version", model.DefaultConfigVersion)),
		Enabled:              boolField(obj, "enabled", true),
		RespawnTickMillis:    max(1, int64Field(obj, "respawnTickMillis", model.DefaultRespawnTickMillis)),
		NotifyCooldownMillis: max(model.MinNotifyCooldownMillis, int64Field(obj, "notifyCooldownMillis", model.DefaultNotifyCooldownMillis)),
	}

	entries, _ := obj["definitions"].([]any)
	if entries == nil {
		entries, _ = obj["Definitions"].([]any)
	}

	var skipped []SkippedEntry
	for i, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			skipped = append(skipped, SkippedEntry{Index: i, Reason: "entry is not an object"})
			continue
		}

		decode := decodeCanonical
		if isAliasEntry(entry) {
			decode = decodeAlias
		}

		def, err := decode(entry, i)
		if err != nil {
			skipped = append(skipped, SkippedEntry{Index: i, ID: def.ID, Reason: err.Error()})
			continue
		}
		cfg.Definitions = append(cfg.Definitions, def)
	}

	return cfg, skipped, nil
}

func fallbackID(index int) string {
	return fmt.Sprintf("definition_%d", index)
}

// decodeCanonical handles {id, enabled, blockId, interactedBlockId,
// gathering:{type, amount|amountMin/amountMax}, respawn:{type, millis|millisMin/millisMax}}.
// "placeholderBlockId" is accepted as an older spelling of interactedBlockId.
func decodeCanonical(entry map[string]any, index int) (*model.Definition, error) {
	def := &model.Definition{
		ID:      stringField(entry, "id", fallbackID(index)),
		Enabled: boolField(entry, "enabled", true),
	}

	if err := canonicalSchema.Validate(entry); err != nil {
		return def, fmt.Errorf("schema: %w", err)
	}

	def.BlockIDPattern = stringField(entry, "blockId", "")
	def.InteractedBlockID = stringField(entry, "interactedBlockId", stringField(entry, "placeholderBlockId", ""))
	if def.BlockIDPattern == "" || def.InteractedBlockID == "" {
		return def, fmt.Errorf("missing block id or interacted block id")
	}

	def.Gathering = canonicalGathering(objectField(entry, "gathering"))
	def.Respawn = canonicalRespawn(objectField(entry, "respawn"))

	return def, nil
}

func canonicalGathering(obj map[string]any) model.GatheringTrigger {
	if obj == nil {
		return model.SpecificTrigger(model.DefaultGatherAmount)
	}

	amount := max(1, intField(obj, "amount", model.DefaultGatherAmount))
	return model.GatheringTrigger{
		Type:      model.ParseTriggerType(stringField(obj, "type", "Specific"), model.TriggerSpecific),
		Amount:    amount,
		AmountMin: intField(obj, "amountMin", amount),
		AmountMax: intField(obj, "amountMax", amount),
	}
}

func canonicalRespawn(obj map[string]any) model.RespawnDelay {
	if obj == nil {
		return model.SetDelay(model.DefaultRespawnDelayMillis)
	}

	millis := max(1, int64Field(obj, "millis", model.DefaultRespawnDelayMillis))
	return model.RespawnDelay{
		Type:      model.ParseDelayType(stringField(obj, "type", "Set"), model.DelaySet),
		Millis:    millis,
		MillisMin: int64Field(obj, "millisMin", millis),
		MillisMax: int64Field(obj, "millisMax", millis),
	}
}
