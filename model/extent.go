// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidExtent = errors.New("extent must be \"xmin,ymin,xmax,ymax\" in WGS84")

// Extent is a WGS84 bounding box. New maps and services created by the
// cloning engine get this as their initial extent.
type Extent struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// ParseExtent parses the comma-separated bounding box form used on item
// properties and tool parameters.
func ParseExtent(s string) (Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Extent{}, ErrInvalidExtent
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Extent{}, fmt.Errorf("%w: %s", ErrInvalidExtent, err.Error())
		}
		coords[i] = v
	}

	e := Extent{XMin: coords[0], YMin: coords[1], XMax: coords[2], YMax: coords[3]}
	if e.XMin > e.XMax || e.YMin > e.YMax {
		return Extent{}, ErrInvalidExtent
	}
	return e, nil
}

func (e Extent) String() string {
	return fmt.Sprintf("%v,%v,%v,%v", e.XMin, e.YMin, e.XMax, e.YMax)
}
