// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gisops/solclone/admin"
	"github.com/gisops/solclone/gateway"
	"github.com/spf13/cobra"
)

var errBadCodedValue = errors.New("coded values must be code=label pairs")

// newFieldsCommand groups the single-call hosted-service metadata edits:
// field alias, field domain and relationship removal.
func newFieldsCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Edit field metadata on a hosted feature layer",
	}
	cmd.AddCommand(
		newAliasCommand(env),
		newDomainCommand(env),
		newRemoveRelationshipCommand(env),
	)
	return cmd
}

// fieldsAdmin builds an admin client for the target portal. These commands
// are one REST call each, so they skip the fx assembly the deploy and
// download commands use.
func fieldsAdmin(env *environment) (*admin.Client, error) {
	settings, err := unmarshalSettings(env.viper)
	if err != nil {
		return nil, err
	}
	gw := gateway.New(gateway.Config{
		Referer:   settings.Referer,
		RetryWait: settings.RetryWait,
		Logger:    env.logger,
	}, nil)
	return admin.New(admin.Config{Token: settings.Target.Token, Logger: env.logger}, gw)
}

func newAliasCommand(env *environment) *cobra.Command {
	var layerURL, field, alias string

	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Update a field's alias",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := fieldsAdmin(env)
			if err != nil {
				return err
			}
			return client.AlterFieldAlias(cmd.Context(), layerURL, field, alias)
		},
	}

	cmd.Flags().StringVar(&layerURL, "url", "", "hosted layer or table URL")
	cmd.Flags().StringVar(&field, "field", "", "field name")
	cmd.Flags().StringVar(&alias, "alias", "", "new alias")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("alias")
	return cmd
}

func newDomainCommand(env *environment) *cobra.Command {
	var (
		layerURL  string
		field     string
		fieldType string
		coded     []string
		rangeMin  string
		rangeMax  string
		clear     bool
	)

	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Replace or clear a field's domain",
		Long: `Replace a field's domain with a coded value domain (--coded code=label,
repeatable) or a range domain (--min and --max), or clear it with --clear.
Codes and bounds are converted to the field's type given with --type.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			domain, err := buildDomain(field, fieldType, coded, rangeMin, rangeMax, clear)
			if err != nil {
				return err
			}
			client, err := fieldsAdmin(env)
			if err != nil {
				return err
			}
			return client.UpdateFieldDomain(cmd.Context(), layerURL, field, domain)
		},
	}

	cmd.Flags().StringVar(&layerURL, "url", "", "hosted layer or table URL")
	cmd.Flags().StringVar(&field, "field", "", "field name")
	cmd.Flags().StringVar(&fieldType, "type", "", "esri field type, for code conversion")
	cmd.Flags().StringSliceVar(&coded, "coded", nil, "coded value as code=label; repeatable")
	cmd.Flags().StringVar(&rangeMin, "min", "", "range domain minimum")
	cmd.Flags().StringVar(&rangeMax, "max", "", "range domain maximum")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the field's domain")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func buildDomain(field, fieldType string, coded []string, min, max string, clear bool) (admin.Domain, error) {
	switch {
	case clear:
		return nil, nil
	case len(coded) > 0:
		values := make([]admin.CodedValue, 0, len(coded))
		for _, pair := range coded {
			code, label, found := strings.Cut(pair, "=")
			if !found {
				return nil, fmt.Errorf("%w: %q", errBadCodedValue, pair)
			}
			values = append(values, admin.CodedValue{Code: code, Value: label})
		}
		return admin.NewCodedValueDomain(field, fieldType, values)
	default:
		return admin.NewRangeDomain(field, fieldType, min, max)
	}
}

func newRemoveRelationshipCommand(env *environment) *cobra.Command {
	var layerURL, name string

	cmd := &cobra.Command{
		Use:   "remove-relationship",
		Short: "Delete a relationship from a hosted layer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := fieldsAdmin(env)
			if err != nil {
				return err
			}
			return client.RemoveRelationship(cmd.Context(), layerURL, name)
		},
	}

	cmd.Flags().StringVar(&layerURL, "url", "", "hosted layer or table URL")
	cmd.Flags().StringVar(&name, "name", "", "relationship name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
