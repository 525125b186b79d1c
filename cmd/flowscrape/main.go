package main

import (
	"context"

	"flowscrape/cmd/flowscrape/commands"
	"flowscrape/lib/serviceutil"
	"flowscrape/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	// credentials and tuning knobs may live in a .env next to the binary
	_ = godotenv.Load()

	ctx := serviceutil.SignalContext()
	if err := telemetry.SetupFromEnv(ctx, "flowscrape"); err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
