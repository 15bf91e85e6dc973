package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/persistence-go/application"
	"github.com/lk2023060901/persistence-go/internal/json"
	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
)

func newSaveCmd(o *rootOptions) *cobra.Command {
	var (
		slot      int
		file      string
		debugCopy bool
	)
	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save a JSON document read from --file or stdin",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && slot < 0 {
				return fmt.Errorf("either a name or --slot must be specified")
			}
			if debugCopy {
				o.overrides = append(o.overrides,
					application.WithOverride("persistence.save_raw_file", true),
					application.WithOverride("persistence.development", true))
			}
			return nil
		},
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, args []string, st *settings.Settings) error {
		in := cmd.InOrStdin()
		if file != "" && file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("input is not a JSON object: %w", err)
		}

		var r settings.Result
		if slot >= 0 {
			r = st.SaveSlot(cmd.Context(), doc, slot)
		} else {
			r = st.Save(cmd.Context(), doc, args[0])
		}
		if r.Err != nil {
			return r.Err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", r.Name)
		return nil
	})
	cmd.Flags().IntVar(&slot, "slot", settings.NoSlot, "save into slot N instead of a name")
	cmd.Flags().StringVar(&file, "file", "", "input file, stdin when empty or -")
	cmd.Flags().BoolVar(&debugCopy, "debug-copy", false, "also write the readable debug copy")
	return cmd
}
