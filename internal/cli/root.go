// Package cli 提供 persistence 命令行工具的命令树。
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/persistence-go/application"
	"github.com/lk2023060901/persistence-go/internal/persistence/settings"
)

type rootOptions struct {
	configPath string
	dataPath   string
	overrides  []application.Option

	app *application.Application
}

// NewRootCmd 构造完整的命令树，每次调用返回独立的实例。
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "persistence",
		Short: "Save-file persistence tool",
		Long: `persistence saves, loads and inspects save files written through the
serialize, encrypt and compress pipeline.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (yaml or json)")
	root.PersistentFlags().StringVar(&o.dataPath, "data-path", "", "override persistence.data_path")

	root.AddCommand(
		newSaveCmd(o),
		newLoadCmd(o),
		newListCmd(o),
		newDeleteCmd(o),
		newInspectCmd(o),
		newInfoCmd(o),
		newConfigCmd(o),
		newVersionCmd(),
	)
	return root
}

// ExecuteWithContext executes the root command with the given context.
func ExecuteWithContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// start 启动 Application，命令结束时由 stop 关闭。
func (o *rootOptions) start(cmd *cobra.Command) (*settings.Settings, error) {
	opts := append([]application.Option{}, o.overrides...)
	if o.configPath != "" {
		opts = append(opts, application.WithConfigPath(o.configPath))
	}
	if o.dataPath != "" {
		opts = append(opts, application.WithDataPath(o.dataPath))
	}
	o.app = application.New(opts...)
	if err := o.app.Run(cmd.Context()); err != nil {
		return nil, err
	}
	return o.app.Settings(), nil
}

func (o *rootOptions) stop(cmd *cobra.Command) error {
	if o.app == nil {
		return nil
	}
	return o.app.Close(cmd.Context())
}

// withSettings 包装需要 Settings 的命令。
func (o *rootOptions) withSettings(run func(cmd *cobra.Command, args []string, st *settings.Settings) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		st, err := o.start(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := o.stop(cmd); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args, st)
	}
}
