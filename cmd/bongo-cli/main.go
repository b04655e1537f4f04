// Package main implements a small interactive client: it reads a line of
// SQL from stdin, sends it to a running bongod server over the wire
// protocol, and prints the response. This mirrors the reference
// implementation's examples-and-tests/src/bin/cli.rs REPL, kept deliberately
// thin since it exists only to exercise the server by hand.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bongodb/bongo/internal/wire"
)

func main() {
	var addr string
	cmd := &cobra.Command{
		Use:   "bongo-cli",
		Short: "Interactive client for a running bongod server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7500", "Address of the bongod server")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(addr string) error {
	client, err := wire.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("connected to %s\n", addr)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("bongo> ")
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		respFrame, err := client.Query(line)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		fmt.Println(string(respFrame))
	}
}
