// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/gisops/solclone/admin"
	"github.com/gisops/solclone/clone"
	"github.com/gisops/solclone/gateway"
	"github.com/gisops/solclone/portal"
	"github.com/gisops/solclone/solution"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Settings is the file configuration shared by all subcommands.
type Settings struct {
	// Source is the portal solution content is read from.
	Source PortalSettings `mapstructure:"source"`

	// Target is the portal objects are created in.
	Target PortalSettings `mapstructure:"target"`

	// Referer is sent on every request; signed tokens are bound to it.
	Referer string `mapstructure:"referer"`

	// RetryWait is the delay between request retries. Defaults to 2s.
	RetryWait time.Duration `mapstructure:"retryWait"`
}

// PortalSettings identifies one portal and the signed-in user on it.
type PortalSettings struct {
	Address  string `mapstructure:"address" validate:"required,url"`
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

func unmarshalSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return s, nil
}

var validate = validator.New()

func (s PortalSettings) check(role string) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid %s portal settings: %w", role, err)
	}
	return nil
}

const (
	sourcePortalName = "portal.source"
	targetPortalName = "portal.target"
)

func newGateway(logger *zap.Logger, s Settings, m gateway.Measures) *gateway.Gateway {
	return gateway.New(gateway.Config{
		Referer:   s.Referer,
		RetryWait: s.RetryWait,
		Logger:    logger,
	}, &m)
}

func newSourcePortal(s Settings, gw *gateway.Gateway, logger *zap.Logger) (*portal.Client, error) {
	if err := s.Source.check("source"); err != nil {
		return nil, err
	}
	return portal.New(portal.Config{
		Address:  s.Source.Address,
		Username: s.Source.Username,
		Token:    s.Source.Token,
		Logger:   logger,
	}, gw)
}

func newTargetPortal(s Settings, gw *gateway.Gateway, logger *zap.Logger) (*portal.Client, error) {
	if err := s.Target.check("target"); err != nil {
		return nil, err
	}
	return portal.New(portal.Config{
		Address:  s.Target.Address,
		Username: s.Target.Username,
		Token:    s.Target.Token,
		Logger:   logger,
	}, gw)
}

func newAdminClient(s Settings, gw *gateway.Gateway, logger *zap.Logger) (*admin.Client, error) {
	return admin.New(admin.Config{Token: s.Target.Token, Logger: logger}, gw)
}

// provideLiveSource wires the source side of a deployment to the source
// portal: tag-search discovery, graph resolution, live service definitions
// and fetchable thumbnails.
func provideLiveSource() fx.Option {
	return fx.Provide(
		fx.Annotated{Name: sourcePortalName, Target: newSourcePortal},
		func(in sourceIn) solution.EntrySource { return solution.Live{Client: in.Source} },
		func(s Settings, gw *gateway.Gateway) clone.ServiceDefinitionSource {
			return &clone.LiveDefinitions{GW: gw, Token: s.Source.Token}
		},
		func(in sourceIn) clone.ThumbnailSource { return in.Source },
	)
}

// provideBundleSource wires the source side to a local bundle directory.
func provideBundleSource(dir string) fx.Option {
	return fx.Provide(
		func() (*solution.Bundle, error) { return solution.OpenBundle(dir) },
		func(b *solution.Bundle) solution.EntrySource { return b },
		func(b *solution.Bundle) clone.ServiceDefinitionSource { return b },
		func(b *solution.Bundle) clone.ThumbnailSource { return b },
	)
}

type sourceIn struct {
	fx.In
	Source *portal.Client `name:"portal.source"`
}

type clonersIn struct {
	fx.In
	Target     *portal.Client `name:"portal.target"`
	Defs       clone.ServiceDefinitionSource
	Thumbnails clone.ThumbnailSource
	Admin      *admin.Client
	Logger     *zap.Logger
}

func newCloners(in clonersIn) *clone.Cloners {
	return &clone.Cloners{
		Target:     in.Target,
		Defs:       in.Defs,
		Thumbnails: in.Thumbnails,
		Admin:      in.Admin,
		Logger:     in.Logger,
	}
}
