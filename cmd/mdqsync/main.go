package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// formatError prefixes errors that classify themselves with their kind.
func formatError(err error) string {
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) {
		return fmt.Sprintf("%s error: %v", kinded.ErrorKind(), err)
	}
	return err.Error()
}
