// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyCodedValue   = errors.New("code and value cannot be empty")
	ErrBadDomainCode     = errors.New("domain code does not fit the field type")
	ErrBadRange          = errors.New("range min and max must be distinct numbers")
	ErrEmptyRelationship = errors.New("relationship name is required")
)

// Integer and floating point esri field types; domain codes and range bounds
// must parse accordingly.
const (
	FieldTypeSmallInteger = "esriFieldTypeSmallInteger"
	FieldTypeInteger      = "esriFieldTypeInteger"
	FieldTypeSingle       = "esriFieldTypeSingle"
	FieldTypeDouble       = "esriFieldTypeDouble"
)

// Domain is a field domain definition as submitted to updateDefinition.
type Domain map[string]any

// CodedValue is one code/label pair of a coded value domain.
type CodedValue struct {
	Code  string
	Value string
}

// NewCodedValueDomain builds a coded value domain, converting codes to the
// field's numeric type when required.
func NewCodedValueDomain(name, fieldType string, values []CodedValue) (Domain, error) {
	coded := make([]any, 0, len(values))
	for _, cv := range values {
		if cv.Code == "" || cv.Value == "" {
			return nil, ErrEmptyCodedValue
		}
		code, err := convertCode(cv.Code, fieldType)
		if err != nil {
			return nil, err
		}
		coded = append(coded, map[string]any{"code": code, "name": cv.Value})
	}
	return Domain{"type": "codedValue", "name": name, "codedValues": coded}, nil
}

// NewRangeDomain builds a range domain. Reversed bounds are swapped rather
// than rejected.
func NewRangeDomain(name, fieldType, min, max string) (Domain, error) {
	if min == "" || max == "" || min == max {
		return nil, ErrBadRange
	}

	lo, err := convertCode(min, fieldType)
	if err != nil {
		return nil, err
	}
	hi, err := convertCode(max, fieldType)
	if err != nil {
		return nil, err
	}

	loF, hiF := toFloat(lo), toFloat(hi)
	if loF > hiF {
		lo, hi = hi, lo
	}
	return Domain{"type": "range", "name": name, "range": []any{lo, hi}}, nil
}

// AlterFieldAlias updates a single field's alias on a hosted layer or table.
func (c *Client) AlterFieldAlias(ctx context.Context, layerURL, field, alias string) error {
	definition := map[string]any{
		"fields": []any{map[string]any{"name": field, "alias": alias}},
	}
	return c.UpdateDefinition(ctx, layerURL, definition)
}

// UpdateFieldDomain replaces a single field's domain on a hosted layer or
// table. A nil domain clears it.
func (c *Client) UpdateFieldDomain(ctx context.Context, layerURL, field string, domain Domain) error {
	definition := map[string]any{
		"fields": []any{map[string]any{"name": field, "domain": domain}},
	}
	return c.UpdateDefinition(ctx, layerURL, definition)
}

// RemoveRelationship deletes a named relationship from a hosted layer or
// table definition.
func (c *Client) RemoveRelationship(ctx context.Context, layerURL, name string) error {
	if name == "" {
		return ErrEmptyRelationship
	}
	definition := map[string]any{
		"relationships": []any{map[string]any{"name": name}},
	}
	return c.DeleteFromDefinition(ctx, layerURL, definition)
}

func convertCode(code, fieldType string) (any, error) {
	switch fieldType {
	case FieldTypeSmallInteger, FieldTypeInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadDomainCode, code)
		}
		return v, nil
	case FieldTypeSingle, FieldTypeDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(code), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrBadDomainCode, code)
		}
		return v, nil
	default:
		return code, nil
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
