package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// @title                       YaMDb API
// @version                     1.0
// @description                 Reviews and ratings of titles with passwordless signup.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "yamdb",
		Usage: "YaMDb review platform API",
		Commands: []*cli.Command{
			serveCommand(),
			ensureIndexesCommand(),
			createAdminCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
