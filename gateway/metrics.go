// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	RequestCounter = "portal_requests_total"
)

// Labels
const (
	OutcomeLabel = "outcome"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"
	RetryOutcome   = "retry"
)

// ProvideMetrics returns the metrics relevant to this package.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RequestCounter,
				Help: "Counter for portal REST requests and their success/failure/retry outcomes.",
			},
			OutcomeLabel,
		),
	)
}

type Measures struct {
	fx.In
	Requests *prometheus.CounterVec `name:"portal_requests_total"`
}
