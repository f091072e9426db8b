package main

import (
	"context"
	"os"
	"os/signal"

	"pricehound/cmd/pricehound-cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	commands.ExecuteContext(ctx)
}
