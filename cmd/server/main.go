package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/recipesync/internal/server"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
)

func main() {
	// recipesync-server hash-key < key.txt
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		if err := server.PrintKeyHash(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.Run(ctx)
}
