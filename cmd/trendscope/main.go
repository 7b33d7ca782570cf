package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trendscope/trendscope/config"
	srv "github.com/trendscope/trendscope/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "trendscope"}

	var serveAddr string
	var configPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP research API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			if serveAddr == "" {
				serveAddr = os.Getenv("TRENDSCOPE_HTTP_ADDR")
			}
			return srv.Run(cfg, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.Flags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serve)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
