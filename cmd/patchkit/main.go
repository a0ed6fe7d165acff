package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/alecthomas/kong"
	rqlitehttp "github.com/rqlite/rqlite-go-http"

	"github.com/a-h/patchkit/engine"
	"github.com/a-h/patchkit/engine/rqliteengine"
	"github.com/a-h/patchkit/engine/sqliteengine"
	"github.com/a-h/patchkit/ledger"
)

// GlobalFlags names the single engine this CLI invocation talks to.
// Patch documents name their own target alias (see Patch.Target), but
// a one-shot CLI invocation has exactly one connection to offer, so
// every target in the document is resolved against it.
type GlobalFlags struct {
	Type        string `help:"The kind of engine to connect to." enum:"sqlite,rqlite" default:"sqlite"`
	Connection  string `help:"The connection string to use." default:"file:data.db?mode=rwc"`
	LedgerTable string `help:"Name of the idempotency ledger table." default:"_patchkit_applied"`
}

func (g GlobalFlags) Engine() (engine.Engine, error) {
	switch g.Type {
	case "sqlite":
		return sqliteengine.Open(g.Connection)
	case "rqlite":
		u, err := url.Parse(g.Connection)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection string: %w", err)
		}
		user := u.Query().Get("user")
		password := u.Query().Get("password")
		u.RawQuery = ""
		client := rqlitehttp.NewClient(u.String(), nil)
		if user != "" && password != "" {
			client.SetBasicAuth(user, password)
		}
		return rqliteengine.New(client), nil
	default:
		return nil, fmt.Errorf("unknown engine type %q", g.Type)
	}
}

func (g GlobalFlags) Ledger() *ledger.SQLiteLedger {
	return ledger.NewSQLiteLedger().WithTable(g.LedgerTable)
}

// Registry builds a registry that resolves any target alias a patch
// document names to this invocation's one configured engine, built at
// most once and cached across every patch applied in this invocation.
func (g GlobalFlags) Registry() *engine.Registry {
	return engine.NewSingleTargetRegistry(engine.Cached(g.Engine))
}

type CLI struct {
	GlobalFlags

	Apply      ApplyCommand      `cmd:"apply" help:"Apply one or more patch documents."`
	Status     StatusCommand     `cmd:"status" help:"Report whether a patch id has already been applied."`
	InitLedger InitLedgerCommand `cmd:"init-ledger" help:"Create the idempotency ledger table."`
}

func main() {
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(cli.GlobalFlags, (*GlobalFlags)(nil)),
	)
	if err := kctx.Run(ctx, cli.GlobalFlags); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
