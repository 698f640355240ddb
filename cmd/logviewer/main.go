// Package main follows the UMLForge log files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"umlforge/local-app/internal/logview"
)

func main() {
	filter := flag.String("filter", "", "only show entries containing this text")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: logviewer [-filter <text>] [log directory]")
		fmt.Fprintln(os.Stderr, "\nPrints the JSON entries of every *.log file in the directory (default: ./logs)")
		fmt.Fprintln(os.Stderr, "and follows them until Ctrl-C.")
	}
	flag.Parse()

	logDir := "./logs"
	if flag.NArg() > 0 {
		logDir = flag.Arg(0)
	}
	if info, err := os.Stat(logDir); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Log directory '%s' does not exist. Please specify a valid directory.\n", logDir)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring logs in directory: %s\n", logDir)
	if err := logview.NewTailer(logDir, *filter, os.Stdout).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nExiting...")
}
