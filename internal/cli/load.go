package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/persistence-go/internal/json"
	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
)

func newLoadCmd(o *rootOptions) *cobra.Command {
	var (
		slot int
		last bool
	)
	cmd := &cobra.Command{
		Use:   "load [name]",
		Short: "Load a save file and print it as JSON",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && slot < 0 && !last {
				return fmt.Errorf("one of name, --slot or --last must be specified")
			}
			return nil
		},
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, args []string, st *settings.Settings) error {
		var (
			doc map[string]any
			r   settings.Result
			ctx = cmd.Context()
		)
		switch {
		case last:
			r = st.TryLoadLastSlot(ctx, &doc)
		case slot >= 0:
			r = st.TryLoadSlot(ctx, &doc, slot)
		default:
			r = st.TryLoad(ctx, &doc, args[0])
		}
		if r.Err != nil {
			return r.Err
		}
		if !r.Found {
			return fmt.Errorf("no data for %q", r.Name)
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	})
	cmd.Flags().IntVar(&slot, "slot", settings.NoSlot, "load slot N")
	cmd.Flags().BoolVar(&last, "last", false, "load the most recently saved slot")
	cmd.MarkFlagsMutuallyExclusive("slot", "last")
	return cmd
}
