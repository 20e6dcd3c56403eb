// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive writes fetched candles to InfluxDB.
//
// The archive is optional: the gateway runs in lightweight mode without it,
// and a configured archiver must never slow a chat turn down. Writes go
// through the client's non-blocking API, which batches in the background;
// write failures are logged and dropped.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// candleMeasurement is the InfluxDB measurement candles are written to.
const candleMeasurement = "candles"

// candleTimeLayouts are the datetime shapes the upstream emits, intraday
// first.
var candleTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// Config holds the InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxArchiver stores candle batches in InfluxDB.
//
// # Thread Safety
//
// Safe for concurrent use; the write API serializes internally.
type InfluxArchiver struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxArchiver connects the archiver. The connection is lazy; use Ping
// to probe the server.
func NewInfluxArchiver(cfg Config) *InfluxArchiver {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	a := &InfluxArchiver{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}

	go func() {
		for err := range a.writeAPI.Errors() {
			slog.Warn("Candle archive write failed", "error", err)
		}
	}()

	return a
}

// Ping probes the InfluxDB health endpoint.
func (a *InfluxArchiver) Ping(ctx context.Context) error {
	health, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	if health.Status != "pass" {
		return fmt.Errorf("influxdb health status %q", health.Status)
	}
	return nil
}

// ArchiveCandles enqueues one point per candle and returns immediately.
//
// # Inputs
//
//   - symbol: The trading symbol the candles belong to.
//   - interval: The candle interval ("1day", "5min", ...).
//   - candles: The bars to archive. Unparsable datetimes fall back to the
//     write time.
func (a *InfluxArchiver) ArchiveCandles(symbol, interval string, candles []datatypes.CandleData) {
	for _, c := range candles {
		fields := map[string]any{
			"open":  c.Open,
			"high":  c.High,
			"low":   c.Low,
			"close": c.Close,
		}
		if c.Volume != nil {
			fields["volume"] = *c.Volume
		}

		point := influxdb2.NewPoint(
			candleMeasurement,
			map[string]string{"symbol": symbol, "interval": interval},
			fields,
			candleTime(c.Datetime),
		)
		a.writeAPI.WritePoint(point)
	}
}

// Close flushes buffered points and severs the connection.
func (a *InfluxArchiver) Close() {
	a.writeAPI.Flush()
	a.client.Close()
}

// candleTime parses an upstream candle datetime.
func candleTime(datetime string) time.Time {
	for _, layout := range candleTimeLayouts {
		if t, err := time.Parse(layout, datetime); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
