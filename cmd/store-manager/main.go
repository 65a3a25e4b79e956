package main

import (
	"context"

	"orionstore-backend/cmd/store-manager/commands"
	"orionstore-backend/lib/serviceutil"
	"orionstore-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "store-manager")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
