package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/model"
	"github.com/udisondev/blockregen/internal/regen"
	"github.com/udisondev/blockregen/internal/world"
)

const simWorld = "sim"

var simulateCmd = &cobra.Command{
	Use:   "simulate [blocks.json] [block-id]",
	Short: "Dry-run gathers of one block and its respawn",
	Args:  cobra.ExactArgs(2),
	RunE:  runSimulate,
}

var (
	simGathers  int
	simStepMs   int64
	simRespawns bool
)

func init() {
	simulateCmd.Flags().IntVar(&simGathers, "gathers", 10, "Number of successful gathers to simulate")
	simulateCmd.Flags().Int64Var(&simStepMs, "step", 1000, "Simulated milliseconds between gathers")
	simulateCmd.Flags().BoolVar(&simRespawns, "respawn", true, "Advance the clock and apply due respawns between gathers")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, _, err := readBlocks(args[0])
	if err != nil {
		return err
	}
	if simGathers <= 0 {
		return fmt.Errorf("--gathers must be positive")
	}

	blockID := args[1]
	coord := coordinator.New(coordinator.LoaderFunc(func() model.Config { return cfg }), nil, nil)
	coord.Initialize()

	def := coord.FindDefinition(blockID)
	if def == nil {
		return fmt.Errorf("no definition governs %s", blockID)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mem := world.NewMemory(simWorld)
	pos := model.NewPosition(simWorld, 0, 0, 0)
	if err := mem.SetBlock(ctx, pos, "", blockID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "simulating %s with definition=%s\n", blockID, def.ID)

	now := int64(0)
	for i := 1; i <= simGathers; i++ {
		now += simStepMs

		if simRespawns {
			for _, r := range coord.PollDueRespawns(simWorld, now) {
				if err := mem.SetBlock(ctx, r.Position, "", r.SourceBlockID); err != nil {
					return err
				}
				fmt.Fprintf(out, "t=%dms respawned %s\n", now, r.SourceBlockID)
			}
		}

		outcome := coord.HandleSuccessfulInteraction(coordinator.KindBreak, simWorld, 0, 0, 0, blockID, now)
		if !outcome.Matched {
			fmt.Fprintf(out, "t=%dms gather #%d unmatched\n", now, i)
			continue
		}

		res := outcome.Result
		if res.Action != regen.ActionBlockedWaiting {
			if err := mem.SetBlock(ctx, pos, "", res.BlockToSet); err != nil {
				return err
			}
		}

		current, err := mem.BlockAt(ctx, pos)
		if err != nil {
			return err
		}

		line := fmt.Sprintf("t=%dms gather #%d action=%s count=%d/%d world=%s",
			now, i, res.Action, res.GatherCount, res.GatherThreshold, current)
		if res.RespawnDueAtMillis > 0 {
			line += fmt.Sprintf(" respawnAt=%dms", res.RespawnDueAtMillis)
		}
		fmt.Fprintln(out, line)
	}

	m := coord.MetricsSnapshot()
	fmt.Fprintf(out, "matched=%d blocked=%d depletions=%d respawns=%d active=%d\n",
		m.MatchedInteractions, m.BlockedInteractions, m.Depletions, m.Respawns, m.ActiveStates)
	return nil
}
