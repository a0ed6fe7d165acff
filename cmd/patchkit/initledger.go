package main

import (
	"context"
	"fmt"
)

type InitLedgerCommand struct{}

func (c *InitLedgerCommand) Run(ctx context.Context, g GlobalFlags) error {
	eng, err := g.Engine()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := g.Ledger().Initialize(ctx, eng); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	fmt.Println("ledger initialized")
	return nil
}
