package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"referral-engine/internal/config"
)

func newInitCmd(o *options) *cobra.Command {
	var force bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := config.SaveAtomic(o.cfgPath, config.Default()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", o.cfgPath)
				return nil
			}
			created, err := config.EnsureUserConfig(o.cfgPath)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", o.cfgPath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, use --force to overwrite\n", o.cfgPath)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return c
}
