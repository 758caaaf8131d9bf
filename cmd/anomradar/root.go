package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AnomFIN/AnomRadar/cmd/anomradar/report"
	"github.com/AnomFIN/AnomRadar/cmd/anomradar/scan"
	"github.com/AnomFIN/AnomRadar/cmd/anomradar/server"
)

func Execute() error {
	var rootCmd = &cobra.Command{
		Use:   "anomradar",
		Short: "Passive reconnaissance scanner for company attack surfaces",
		Long:  `AnomRadar maps a company's public attack surface with passive probes only and condenses the findings into a bounded risk score`,
	}

	// Add commands
	rootCmd.AddCommand(scan.NewScanCommand())
	rootCmd.AddCommand(scan.NewListPlansCommand())
	rootCmd.AddCommand(scan.NewListProbesCommand())
	rootCmd.AddCommand(server.NewServerCommand())
	rootCmd.AddCommand(report.NewReportCommand())
	return rootCmd.ExecuteContext(context.Background())
}
