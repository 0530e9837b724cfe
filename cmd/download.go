// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"

	"github.com/gisops/solclone/clone"
	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/solution"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newDownloadCommand(env *environment) *cobra.Command {
	var (
		solutionName string
		names        []string
		outDir       string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Write a solution from the source portal into a local bundle",
		Long: `Resolve every tagged map and app of the named solution and write the
items, groups and service definitions into a local bundle directory. The
bundle can later be deployed without access to the source portal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := unmarshalSettings(env.viper)
			if err != nil {
				return err
			}

			app := fx.New(
				arrange.LoggerFunc(env.logger.Sugar().Debugf),
				arrange.ForViper(env.viper),
				fx.Supply(env.logger, settings),
				touchstone.Provide(),
				gateway.ProvideMetrics(),
				fx.Provide(
					newGateway,
					fx.Annotated{Name: sourcePortalName, Target: newSourcePortal},
					func(s Settings, gw *gateway.Gateway) solution.ServiceDefinitions {
						return &clone.LiveDefinitions{GW: gw, Token: s.Source.Token}
					},
					newDownloader,
				),
				fx.Invoke(func(d *solution.Downloader) error {
					return d.Download(cmd.Context(), solutionName, outDir, names...)
				}),
			)

			if err := app.Err(); err != nil && !errors.Is(err, pflag.ErrHelp) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&solutionName, "solution", "", "name of the solution to download")
	cmd.Flags().StringSliceVar(&names, "name", nil, "map or app titles to download (default: all tagged entries)")
	cmd.Flags().StringVar(&outDir, "out", ".", "bundle directory to write into")
	_ = cmd.MarkFlagRequired("solution")
	return cmd
}

func newDownloader(in sourceIn, defs solution.ServiceDefinitions, logger *zap.Logger) *solution.Downloader {
	return &solution.Downloader{
		Source: in.Source,
		Defs:   defs,
		Logger: logger,
	}
}
