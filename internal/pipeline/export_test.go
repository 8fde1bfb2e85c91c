// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package pipeline

import "github.com/prometheus/client_golang/prometheus/testutil"

func ChunksIngested(m *Metrics, project string) float64 {
	return testutil.ToFloat64(m.chunksIngested.WithLabelValues(project))
}

func Requests(m *Metrics, op, outcome string) float64 {
	return testutil.ToFloat64(m.requests.WithLabelValues(op, outcome))
}
