// Package index maps block identifiers to regeneration definitions.
//
// An Index is built once from a loaded configuration and is read-only
// afterwards, so it can be shared between goroutines without locking.
// Reloads build a new Index and publish it by swapping a pointer.
package index

import (
	"log/slog"
	"strings"

	"github.com/udisondev/blockregen/internal/model"
)

type wildcardMapping struct {
	pattern    string // normalized glob
	definition *model.Definition
}

// Index resolves block ids to definitions.
// Exact patterns always win over wildcard patterns; among wildcard
// patterns the first one in configuration order wins.
type Index struct {
	exact       map[string]*model.Definition
	interacted  map[string]*model.Definition
	wildcards   []wildcardMapping
	definitions []*model.Definition
}

// Empty returns an index without definitions.
func Empty() *Index {
	return &Index{
		exact:      make(map[string]*model.Definition),
		interacted: make(map[string]*model.Definition),
	}
}

// Load builds an index from cfg.
// Disabled definitions are indexed as well; routing code checks Enabled.
func Load(cfg model.Config) *Index {
	idx := &Index{
		exact:       make(map[string]*model.Definition, len(cfg.Definitions)),
		interacted:  make(map[string]*model.Definition, len(cfg.Definitions)),
		definitions: make([]*model.Definition, 0, len(cfg.Definitions)),
	}

	for _, def := range cfg.Definitions {
		if def == nil {
			continue
		}
		idx.register(def)
	}

	return idx
}

func (idx *Index) register(def *model.Definition) {
	pattern := normalize(def.BlockIDPattern)
	if pattern == "" {
		return
	}

	if strings.Contains(pattern, "*") {
		// A repeated glob replaces the earlier mapping.
		kept := idx.wildcards[:0]
		for _, m := range idx.wildcards {
			if m.pattern != pattern {
				kept = append(kept, m)
				continue
			}
			slog.Warn("replaced wildcard block mapping",
				"pattern", def.BlockIDPattern,
				"oldID", m.definition.ID,
				"newID", def.ID)
		}
		idx.wildcards = append(kept, wildcardMapping{pattern: pattern, definition: def})
	} else {
		if prev, ok := idx.exact[pattern]; ok && prev != def {
			slog.Warn("replaced exact block mapping",
				"block", def.BlockIDPattern,
				"oldID", prev.ID,
				"newID", def.ID)
		}
		idx.exact[pattern] = def
	}

	if placeholder := normalize(def.InteractedBlockID); placeholder != "" {
		if prev, ok := idx.interacted[placeholder]; ok && prev != def {
			slog.Warn("replaced interacted block mapping",
				"block", def.InteractedBlockID,
				"oldID", prev.ID,
				"newID", def.ID)
		}
		idx.interacted[placeholder] = def
	}

	idx.definitions = append(idx.definitions, def)
}

// FindByBlockID returns the definition governing blockID, or nil.
func (idx *Index) FindByBlockID(blockID string) *model.Definition {
	normalized := normalize(blockID)
	if normalized == "" {
		return nil
	}

	if def, ok := idx.exact[normalized]; ok {
		return def
	}

	simple := SimpleName(normalized)
	if simple != normalized {
		if def, ok := idx.exact[simple]; ok {
			return def
		}
	}

	for _, m := range idx.wildcards {
		if globMatch(m.pattern, normalized) || (simple != normalized && globMatch(m.pattern, simple)) {
			return m.definition
		}
	}

	return nil
}

// FindByInteractedBlockID returns the definition whose placeholder block is
// blockID, or nil. No wildcard matching is done here.
func (idx *Index) FindByInteractedBlockID(blockID string) *model.Definition {
	normalized := normalize(blockID)
	if normalized == "" {
		return nil
	}

	if def, ok := idx.interacted[normalized]; ok {
		return def
	}

	if simple := SimpleName(normalized); simple != normalized {
		return idx.interacted[simple]
	}

	return nil
}

// Definitions returns all indexed definitions in configuration order.
func (idx *Index) Definitions() []*model.Definition {
	out := make([]*model.Definition, len(idx.definitions))
	copy(out, idx.definitions)
	return out
}

// Len returns the number of indexed definitions.
func (idx *Index) Len() int {
	return len(idx.definitions)
}

// SimpleName strips a leading "namespace:" and any "category/" segments,
// keeping only the final path component.
//
//	mymod:mining/Ore_Iron_A -> Ore_Iron_A
func SimpleName(blockID string) string {
	simple := blockID

	if i := strings.LastIndexByte(simple, ':'); i >= 0 && i+1 < len(simple) {
		simple = simple[i+1:]
	}
	if i := strings.LastIndexByte(simple, '/'); i >= 0 && i+1 < len(simple) {
		simple = simple[i+1:]
	}

	return simple
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// globMatch reports whether s matches pattern, where '*' matches any run of
// characters (including none) and everything else is literal.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}

	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(s, part)
		if i < 0 {
			return false
		}
		s = s[i+len(part):]
	}

	return strings.HasSuffix(s, last)
}
