package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/a-h/patchkit"
	"github.com/a-h/patchkit/patchfile"
	"github.com/a-h/patchkit/reportpretty"
)

type ApplyCommand struct {
	Path            string `arg:"" help:"Path to a patch document, or a directory of them." required:""`
	AllowDDL        bool   `help:"Allow CREATE/DROP/ALTER/TRUNCATE actions."`
	VerifyHash      bool   `help:"Reject patches whose metadata.sha256 doesn't match." default:"true"`
	SkipIdempotency bool   `help:"Apply even if the ledger already records this patch id."`
}

func (c *ApplyCommand) Run(ctx context.Context, g GlobalFlags) error {
	paths, err := c.paths()
	if err != nil {
		return err
	}

	cfg := patchkit.DefaultConfig()
	cfg.AllowDDL = c.AllowDDL
	cfg.VerifyHash = c.VerifyHash
	if c.SkipIdempotency {
		cfg.Idempotency = nil
	} else {
		cfg.Idempotency = g.Ledger()
	}

	pk := patchkit.New(g.Registry(), cfg)

	failed := false
	for _, path := range paths {
		raw, err := patchfile.ReadFile(path)
		if err != nil {
			return err
		}

		// correlationID ties this invocation's log line to the report
		// printed below; it isn't part of the patch document itself.
		correlationID := uuid.NewString()
		fmt.Printf("applying %s (correlation=%s)\n", path, correlationID)

		report := pk.Apply(ctx, raw)
		if err := reportpretty.Fprint(os.Stdout, report); err != nil {
			return fmt.Errorf("failed to print report for %s: %w", path, err)
		}
		if !report.Success() {
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("one or more patches failed to apply")
	}
	return nil
}

func (c *ApplyCommand) paths() ([]string, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", c.Path, err)
	}
	if !info.IsDir() {
		return []string{c.Path}, nil
	}
	return patchfile.ReadDir(c.Path)
}
