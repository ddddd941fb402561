// Command aurachat is a terminal client for the Aura chat API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/aura/backend/internal/cache"
	"github.com/zhouzirui/aura/backend/internal/client"
)

func main() {
	_ = godotenv.Load()

	var opts struct {
		URL   string
		Token string
	}

	cmd := &cobra.Command{
		Use:   "aurachat",
		Short: "Chat with Aura AI from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Token == "" {
				return fmt.Errorf("a session token is required (--token or AURA_TOKEN)")
			}

			r := &repl{out: cmd.OutOrStdout()}
			r.cache = cache.New(client.New(opts.URL, opts.Token), cache.NotifierFunc(r.notify))
			return r.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", envOr("AURA_API_URL", "http://localhost:5001/api"), "API base URL")
	cmd.Flags().StringVar(&opts.Token, "token", os.Getenv("AURA_TOKEN"), "Session token")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
