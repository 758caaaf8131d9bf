package report

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/internal/database"
	"github.com/AnomFIN/AnomRadar/pkg/export"
)

type ReportOpts struct {
	Format    string
	OutputDir string
}

// NewReportCommand creates the report command. It re-renders a stored scan
// result without re-running any probes.
func NewReportCommand() *cobra.Command {
	opts := &ReportOpts{}

	reportCmd := &cobra.Command{
		Use:   "report <scan-id>",
		Short: "Re-render a stored scan report",
		Long:  `Re-render the report of a finished scan from its stored result, in any supported format`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if !export.ValidFormat(opts.Format) {
				return fmt.Errorf("invalid report format: %s", opts.Format)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			database.InitDB(cfg)
			scanDao := dao.NewScanDAO(database.DB)

			scan, err := scanDao.GetScanByUUID(args[0])
			if err != nil {
				return fmt.Errorf("load scan %s: %w", args[0], err)
			}

			result, err := scan.Result()
			if err != nil {
				return fmt.Errorf("decode scan result: %w", err)
			}
			if result == nil {
				return fmt.Errorf("scan %s has no result yet", args[0])
			}

			writer, err := export.NewWriter(opts.OutputDir)
			if err != nil {
				return fmt.Errorf("create report writer: %w", err)
			}

			var path string
			switch opts.Format {
			case export.FormatHTML:
				path, err = writer.WriteHTML(result)
			case export.FormatXLSX:
				path, err = writer.WriteXLSX(result)
			default:
				path, err = writer.WriteJSON(result)
			}
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			fmt.Printf("Report written: %s\n", path)
			return nil
		},
	}

	reportCmd.Flags().StringVarP(&opts.Format, "format", "f", "json", "Report format (json, html, xlsx)")
	reportCmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "./reports", "Directory for the rendered report")

	return reportCmd
}
