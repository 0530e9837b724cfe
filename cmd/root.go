// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

// Package cmd wires the solclone command line: deploy, download and the
// hosted-service field editing commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

const applicationName = "solclone"

// environment carries what every subcommand needs once the root command has
// run its setup: the loaded configuration and the built logger.
type environment struct {
	viper  *viper.Viper
	logger *zap.Logger
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, version string) int {
	env := new(environment)

	root := newRootCommand(env, version)
	root.AddCommand(
		newDeployCommand(env),
		newDownloadCommand(env),
		newFieldsCommand(env),
	)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCommand(env *environment, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           applicationName,
		Short:         "Clone GIS solution content between portals",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			debug, _ := cmd.Flags().GetBool("debug")
			v, logger, err := setup(file, debug)
			if err != nil {
				return err
			}
			env.viper = v
			env.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringP("file", "f", "", "the configuration file to use.  Overrides the search path.")
	root.PersistentFlags().BoolP("debug", "d", false, "enables debug logging.  Overrides configuration.")
	return root
}

// setup loads configuration and builds the logger. Without -f the usual
// search path applies and a missing file is not an error; flags and defaults
// still have to carry the run.
func setup(file string, debug bool) (*viper.Viper, *zap.Logger, error) {
	v := viper.New()

	if len(file) > 0 {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(applicationName)
		v.AddConfigPath(fmt.Sprintf("/etc/%s", applicationName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s", applicationName))
		v.AddConfigPath(".")
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		if err != nil && !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if debug {
		v.Set("logging.level", "DEBUG")
	}

	var c sallust.Config
	if err := v.UnmarshalKey("logging", &c, arrange.ComposeDecodeHooks(sallust.DecodeHook)); err != nil {
		return nil, nil, err
	}

	logger, err := c.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create zap logger: %w", err)
	}
	return v, logger, nil
}
