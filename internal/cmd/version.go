package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"referral-engine/internal/version"
)

func newVersionCmd() *cobra.Command {
	var long bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if long {
				out, _ := json.MarshalIndent(info, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
			}
		},
	}
	c.Flags().BoolVar(&long, "long", false, "Print detailed version information as JSON")
	return c
}
