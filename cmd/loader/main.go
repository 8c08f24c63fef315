package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/visualscripts/loader/internal/app"
	apperrors "github.com/visualscripts/loader/internal/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication()
	if err != nil {
		return report(err)
	}
	defer application.Shutdown(context.Background())

	if err := application.Run(ctx); err != nil {
		return report(err)
	}
	return 0
}

// report prints the operator-facing message and maps the failure to its
// exit code. Diagnostics were already logged where the failure happened.
func report(err error) int {
	exitErr := apperrors.AsExit(err)
	fmt.Fprintln(os.Stderr, exitErr.Message)
	return exitErr.ExitCode()
}
