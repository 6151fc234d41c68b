// jobmate-autoapply-service
//
// Job search automation: multi-platform discovery, record reconciliation
// and easy-apply form filling driven by a stored answer book.
//
// Commands are documented by `autoapply --help`. `serve` runs periodic
// discovery and the HTTP API; the others are one-shot.
package main

import (
	"context"
	"fmt"
	"os"

	"jobmate/autoapply-service/internal/cli"
	"jobmate/autoapply-service/internal/config"
)

func main() {
	// ── .env ─────────────────────────────────────────────────────────────────
	if err := config.LoadDotEnv(os.Getenv("AUTOAPPLY_ENV_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "[autoapply] %v\n", err)
		os.Exit(cli.ExitCommandError)
	}

	os.Exit(cli.Execute(context.Background(), cli.FromEnv, os.Args[1:], os.Stdout, os.Stderr))
}
