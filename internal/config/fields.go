package config

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Lenient accessors over decoded JSON objects. Wrong types fall back.

func stringField(obj map[string]any, key, fallback string) string {
	s, ok := obj[key].(string)
	if !ok {
		return fallback
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

func boolField(obj map[string]any, key string, fallback bool) bool {
	switch v := obj[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func floatField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func int64Field(obj map[string]any, key string, fallback int64) int64 {
	if n, ok := obj[key].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}

	f, ok := floatField(obj, key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return int64(f)
}

func intField(obj map[string]any, key string, fallback int) int {
	return int(int64Field(obj, key, int64(fallback)))
}

func objectField(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	return m
}
