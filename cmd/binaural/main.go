// Command binaural sends an audio file to the dimensional processing
// service and saves the original and mixed clips.
//
// Usage:
//
//	binaural [flags] process [FILE] --dimensionality N --out DIR
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RenatoCabral2022/binaural-studio/cmd/binaural/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
