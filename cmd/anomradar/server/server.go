package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnomFIN/AnomRadar/api/routes"
	"github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/internal/database"
)

type ServerOpts struct {
	Port int
	Ip   string
}

func NewServerCommand() *cobra.Command {
	ServerConfig := &ServerOpts{}

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the AnomRadar server",
		Long:  `Start the AnomRadar server to manage and run scans over a REST API`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.ServerPort = ServerConfig.Port
			}

			database.InitDB(cfg)

			router, scanService := routes.InitRouter(database.DB, cfg)
			defer scanService.Close()

			return router.Run(fmt.Sprintf("%s:%d", ServerConfig.Ip, cfg.ServerPort))
		},
	}

	serverCmd.Flags().IntVarP(&ServerConfig.Port, "port", "p", 8080, "Port to run the server on (overrides config)")
	serverCmd.Flags().StringVarP(&ServerConfig.Ip, "ip", "i", "", "IP address to bind the server to (empty binds all interfaces)")

	return serverCmd
}
