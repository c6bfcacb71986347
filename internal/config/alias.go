package config

import (
	"fmt"
	"math"

	"github.com/udisondev/blockregen/internal/model"
)

// Keys that only appear in the alias schema.
var aliasKeys = []string{"Block_ID", "Interacted block", "Gathering", "Respawn"}

func isAliasEntry(entry map[string]any) bool {
	for _, k := range aliasKeys {
		if _, ok := entry[k]; ok {
			return true
		}
	}
	return false
}

// decodeAlias handles {Block_ID, "Interacted block", Gathering:[{Type, Amount,
// Amount_Min, Amount_Max}], Respawn:[{Type, Seconds, Seconds_Min, Seconds_Max}]}.
// Sections may also be given as bare objects. Seconds become millis.
func decodeAlias(entry map[string]any, index int) (*model.Definition, error) {
	id := stringField(entry, "ID", stringField(entry, "Id", stringField(entry, "id", fallbackID(index))))
	def := &model.Definition{
		ID:      id,
		Enabled: boolField(entry, "Enabled", boolField(entry, "enabled", true)),
	}

	if err := aliasSchema.Validate(entry); err != nil {
		return def, fmt.Errorf("schema: %w", err)
	}

	def.BlockIDPattern = stringField(entry, "Block_ID", "")
	def.InteractedBlockID = stringField(entry, "Interacted block", "")
	if def.BlockIDPattern == "" || def.InteractedBlockID == "" {
		return def, fmt.Errorf("missing Block_ID or Interacted block")
	}

	def.Gathering = aliasGathering(sectionField(entry, "Gathering"))
	def.Respawn = aliasRespawn(sectionField(entry, "Respawn"))

	return def, nil
}

// sectionField unwraps a single-object array section.
func sectionField(obj map[string]any, key string) map[string]any {
	switch v := obj[key].(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) == 0 {
			return nil
		}
		m, _ := v[0].(map[string]any)
		return m
	default:
		return nil
	}
}

func aliasGathering(obj map[string]any) model.GatheringTrigger {
	if obj == nil {
		return model.SpecificTrigger(model.DefaultGatherAmount)
	}

	amount := max(1, intField(obj, "Amount", model.DefaultGatherAmount))
	lo := intField(obj, "Amount_Min", amount)
	hi := intField(obj, "Amount_Max", amount)

	inferred := model.TriggerSpecific
	if lo != hi {
		inferred = model.TriggerRandom
	}

	return model.GatheringTrigger{
		Type:      model.ParseTriggerType(stringField(obj, "Type", ""), inferred),
		Amount:    amount,
		AmountMin: lo,
		AmountMax: hi,
	}
}

func aliasRespawn(obj map[string]any) model.RespawnDelay {
	if obj == nil {
		return model.SetDelay(model.DefaultRespawnDelayMillis)
	}

	millis := max(1, secondsAsMillis(obj, "Seconds", model.DefaultRespawnDelayMillis))
	lo := secondsAsMillis(obj, "Seconds_Min", millis)
	hi := secondsAsMillis(obj, "Seconds_Max", millis)
	if _, ok := obj["Seconds"]; !ok {
		// Only a range was given; a SET delay uses its lower bound.
		millis = max(1, min(lo, hi))
	}

	inferred := model.DelaySet
	if lo != hi {
		inferred = model.DelayRandom
	}

	return model.RespawnDelay{
		Type:      model.ParseDelayType(stringField(obj, "Type", ""), inferred),
		Millis:    millis,
		MillisMin: lo,
		MillisMax: hi,
	}
}

func secondsAsMillis(obj map[string]any, key string, fallback int64) int64 {
	secs, ok := floatField(obj, key)
	if !ok {
		return fallback
	}
	return int64(math.Round(secs * 1000))
}
