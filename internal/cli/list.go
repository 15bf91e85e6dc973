package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
)

func newListCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List save names",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, _ []string, st *settings.Settings) error {
		names, err := st.FileNames(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	})
	return cmd
}

func newDeleteCmd(o *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a save, or every save with --all",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == !all {
				return fmt.Errorf("specify either a name or --all")
			}
			return nil
		},
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, args []string, st *settings.Settings) error {
		var r settings.Result
		if all {
			r = st.DeleteAll(cmd.Context())
		} else {
			r = st.Delete(cmd.Context(), args[0])
		}
		if r.Err != nil {
			return r.Err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted")
		return nil
	})
	cmd.Flags().BoolVar(&all, "all", false, "delete every save and the last slot record")
	return cmd
}
