// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"

	"github.com/gisops/solclone/clone"
	"github.com/gisops/solclone/deploy"
	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/model"
	"github.com/gisops/solclone/portal"
	"github.com/gisops/solclone/solution"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newDeployCommand(env *environment) *cobra.Command {
	var (
		solutionName string
		names        []string
		extentRaw    string
		folderTitle  string
		bundleDir    string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Clone a solution's maps and apps into the target portal",
		Long: `Clone the named maps and apps of a solution, along with the groups,
hosted feature services and web maps they depend on, into a folder of the
target portal. Content is read from the source portal, or from a local
bundle directory written by the download command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extent, err := model.ParseExtent(extentRaw)
			if err != nil {
				return err
			}

			settings, err := unmarshalSettings(env.viper)
			if err != nil {
				return err
			}

			if folderTitle == "" {
				folderTitle = solutionName
			}

			source := provideLiveSource()
			if bundleDir != "" {
				source = provideBundleSource(bundleDir)
			}

			app := fx.New(
				arrange.LoggerFunc(env.logger.Sugar().Debugf),
				arrange.ForViper(env.viper),
				fx.Supply(env.logger, settings),
				touchstone.Provide(),
				gateway.ProvideMetrics(),
				source,
				fx.Provide(
					newGateway,
					fx.Annotated{Name: targetPortalName, Target: newTargetPortal},
					newAdminClient,
					newCloners,
					newDeployer,
				),
				fx.Invoke(func(d *deploy.Deployer) error {
					return d.Deploy(cmd.Context(), deploy.Request{
						Solution: solutionName,
						Names:    names,
						Extent:   extent,
						Folder:   folderTitle,
					})
				}),
			)

			if err := app.Err(); err != nil && !errors.Is(err, pflag.ErrHelp) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&solutionName, "solution", "", "name of the solution to deploy")
	cmd.Flags().StringSliceVar(&names, "name", nil, "map or app name to deploy; repeatable")
	cmd.Flags().StringVar(&extentRaw, "extent", "", "default extent as xmin,ymin,xmax,ymax in WGS84")
	cmd.Flags().StringVar(&folderTitle, "folder", "", "destination folder title; defaults to the solution name")
	cmd.Flags().StringVar(&bundleDir, "bundle", "", "deploy from a local bundle directory instead of the source portal")
	_ = cmd.MarkFlagRequired("solution")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("extent")
	return cmd
}

type deployerIn struct {
	fx.In
	Source  solution.EntrySource
	Target  *portal.Client `name:"portal.target"`
	Cloners *clone.Cloners
	Logger  *zap.Logger
}

func newDeployer(in deployerIn) (*deploy.Deployer, error) {
	host := deploy.ZapHost{Logger: in.Logger}
	return deploy.New(in.Source, in.Target, in.Cloners, host, in.Logger)
}
