package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search saved referrals by message text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.files.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(results, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
