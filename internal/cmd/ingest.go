package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Scan the input folder once and extract referrals from every transcript",
		Long: `ingest processes each transcript in the input folder, writes the referrals
it finds as JSON and CSV into the output folder and deletes the transcript.
A transcript that cannot be decoded is reported and left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			sum, err := a.ingestor.PollOnce(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("ingest finished",
				zap.Int("processed", sum.Processed),
				zap.Int("extracted", sum.Extracted),
				zap.Int("failed", sum.Failed),
			)
			return nil
		},
	}
}
