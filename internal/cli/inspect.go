package cli

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
	"github.com/lk2023060901/persistence-go/internal/persistence/storage"
)

func newInspectCmd(o *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Print a save file's content, size and xxhash64",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, args []string, st *settings.Settings) error {
		fsys := st.FileSystem()
		rc, err := fsys.LoadStream(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if rc == nil {
			return fmt.Errorf("no data for %q", args[0])
		}
		defer rc.Close()

		h := xxhash.New()
		size, err := io.Copy(h, rc)
		if err != nil {
			return err
		}

		var content string
		if raw {
			content, err = fsys.LoadCompressedContent(cmd.Context(), args[0])
		} else {
			content, err = fsys.LoadContent(cmd.Context(), args[0], true)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:     %s\n", fsys.Path(args[0], storage.CompressedExtension))
		fmt.Fprintf(out, "size:     %d\n", size)
		fmt.Fprintf(out, "xxhash64: %016x\n", h.Sum64())
		fmt.Fprintln(out, content)
		return nil
	})
	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored text without decoding")
	return cmd
}
