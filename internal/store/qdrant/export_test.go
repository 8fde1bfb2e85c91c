// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package qdrant

var (
	DistanceOf        = distanceOf
	MetricOf          = metricOf
	Similarity        = similarity
	HNSWConfig        = hnswConfig
	PointsFromRecords = pointsFromRecords
)
