package main

import (
	"context"
	"fmt"
)

type StatusCommand struct {
	PatchID string `arg:"" help:"The patch id to look up." required:""`
}

func (c *StatusCommand) Run(ctx context.Context, g GlobalFlags) error {
	eng, err := g.Engine()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	l := g.Ledger()
	if err := l.Initialize(ctx, eng); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	applied, err := l.HasBeenApplied(ctx, eng, c.PatchID)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}

	if applied {
		fmt.Printf("%s: applied\n", c.PatchID)
		return nil
	}
	fmt.Printf("%s: not applied\n", c.PatchID)
	return nil
}
