// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// UpstreamHealthResponse is returned by GET /v1/upstream-health. Status is
// "connected" or "disconnected"; Message carries the probe detail.
type UpstreamHealthResponse struct {
	Status      string `json:"status"`
	UpstreamURL string `json:"upstream_url"`
	Connected   bool   `json:"connected"`
	Message     string `json:"message"`
}
