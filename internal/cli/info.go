package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/persistence-go/application"
	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
	"github.com/lk2023060901/persistence-go/pkg/util/hardware"
)

const maskedKey = "******"

func newInfoCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the data folder, save count, free disk space and strategies",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, _ []string, st *settings.Settings) error {
		fsys := st.FileSystem()
		if err := fsys.CheckDataPath(cmd.Context()); err != nil {
			return err
		}
		names, err := st.FileNames(cmd.Context())
		if err != nil {
			return err
		}
		usage, err := hardware.GetDiskUsage(fsys.DataPath())
		if err != nil {
			return err
		}
		cfg := st.Config()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "data path:     %s\n", fsys.DataPath())
		fmt.Fprintf(out, "saves:         %d\n", len(names))
		fmt.Fprintf(out, "disk free:     %d / %d bytes (%.1f%% used)\n", usage.Free, usage.Total, usage.UsedPercent)
		fmt.Fprintf(out, "serializer:    %s\n", cfg.Serializer)
		fmt.Fprintf(out, "cryptographer: %s\n", cfg.Cryptographer)
		fmt.Fprintf(out, "compressor:    %s\n", cfg.Compressor)
		fmt.Fprintf(out, "development:   %t\n", cfg.Development)
		if slot, ok := st.LastSlot(cmd.Context()); ok {
			fmt.Fprintf(out, "last slot:     %d\n", slot)
		}
		return nil
	})
	return cmd
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	var showKey bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = o.withSettings(func(cmd *cobra.Command, _ []string, _ *settings.Settings) error {
		conf := o.app.Config()
		if !showKey {
			conf.Persistence.CryptographerKey = maskedKey
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(conf); err != nil {
			return err
		}
		return enc.Close()
	})
	cmd.Flags().BoolVar(&showKey, "show-key", false, "print the cryptographer key in clear")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := application.BuildVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (development: %t)\n", v, application.IsDevelopment())
			return nil
		},
	}
}
