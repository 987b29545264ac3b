// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/tradeinfra/host-conformance/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	code := cmd.ExitCode(err)
	if code == cmd.ExitSetup {
		fmt.Fprintf(os.Stderr, "Setup error: %v\n", err)
	}
	os.Exit(code)
}
