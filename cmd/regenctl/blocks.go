package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/udisondev/blockregen/internal/config"
	"github.com/udisondev/blockregen/internal/index"
	"github.com/udisondev/blockregen/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate [blocks.json]",
	Short: "Parse a block regen file and report skipped entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var matchCmd = &cobra.Command{
	Use:   "match [blocks.json] [block-id]",
	Short: "Show which definition governs a block id",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatch,
}

var validateStrict bool

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when any entry was skipped")
}

func readBlocks(path string) (model.Config, []config.SkippedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Config{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, skipped, err := config.ParseBlocks(data)
	if err != nil {
		return model.Config{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, skipped, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, skipped, err := readBlocks(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version=%d enabled=%t respawnTickMillis=%d notifyCooldownMillis=%d\n",
		cfg.Version, cfg.Enabled, cfg.RespawnTickMillis, cfg.NotifyCooldownMillis)

	for _, def := range cfg.Definitions {
		fmt.Fprintf(out, "  %-20s %-24s -> %-20s gathering=%s respawn=%s enabled=%t\n",
			def.ID, def.BlockIDPattern, def.InteractedBlockID,
			describeGathering(def.Gathering), describeRespawn(def.Respawn), def.Enabled)
	}

	for _, s := range skipped {
		fmt.Fprintf(out, "  skipped #%d id=%q: %s\n", s.Index, s.ID, s.Reason)
	}

	fmt.Fprintf(out, "%d definitions loaded, %d skipped\n", len(cfg.Definitions), len(skipped))

	if validateStrict && len(skipped) > 0 {
		return fmt.Errorf("%d entries skipped", len(skipped))
	}
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, _, err := readBlocks(args[0])
	if err != nil {
		return err
	}

	idx := index.Load(cfg)
	blockID := args[1]
	out := cmd.OutOrStdout()

	if def := idx.FindByBlockID(blockID); def != nil {
		fmt.Fprintf(out, "block=%s definition=%s pattern=%s gathering=%s respawn=%s enabled=%t\n",
			blockID, def.ID, def.BlockIDPattern,
			describeGathering(def.Gathering), describeRespawn(def.Respawn), def.Enabled)
	} else {
		fmt.Fprintf(out, "block=%s definition=<none>\n", blockID)
	}

	if def := idx.FindByInteractedBlockID(blockID); def != nil {
		fmt.Fprintf(out, "placeholder of definition=%s\n", def.ID)
	}
	return nil
}

func describeGathering(g model.GatheringTrigger) string {
	if g.Type == model.TriggerRandom {
		return fmt.Sprintf("%s(%d-%d)", g.Type, g.AmountMin, g.AmountMax)
	}
	return fmt.Sprintf("%s(%d)", g.Type, g.Amount)
}

func describeRespawn(r model.RespawnDelay) string {
	if r.Type == model.DelayRandom {
		return fmt.Sprintf("%s(%d-%dms)", r.Type, r.MillisMin, r.MillisMax)
	}
	return fmt.Sprintf("%s(%dms)", r.Type, r.Millis)
}
