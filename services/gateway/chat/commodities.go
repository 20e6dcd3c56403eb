// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chat

import (
	"context"
	"encoding/json"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
)

// KnownCommodities is the last-resort listing served when the upstream is
// unreachable and nothing is cached.
var KnownCommodities = []datatypes.Commodity{
	{Symbol: "XAU/USD", Name: "Gold"},
	{Symbol: "XAG/USD", Name: "Silver"},
	{Symbol: "XPT/USD", Name: "Platinum"},
	{Symbol: "XPD/USD", Name: "Palladium"},
	{Symbol: "NG", Name: "Natural Gas"},
	{Symbol: "CL", Name: "Crude Oil WTI"},
	{Symbol: "BZ", Name: "Brent Crude Oil"},
	{Symbol: "HG", Name: "Copper"},
	{Symbol: "ZC", Name: "Corn"},
	{Symbol: "ZW", Name: "Wheat"},
	{Symbol: "ZS", Name: "Soybeans"},
	{Symbol: "KC", Name: "Coffee"},
	{Symbol: "CT", Name: "Cotton"},
	{Symbol: "SB", Name: "Sugar"},
}

// handleCommodities serves the commodity catalog with a three-tier fallback:
// fresh cache, live upstream, stale cache, then KnownCommodities. It is the
// one handler that can always answer.
func (s *Service) handleCommodities(ctx context.Context) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	params := map[string]any{"type": "commodities_list"}

	lookup, err := s.cache.Lookup("commodities", params)
	if err != nil {
		return nil, nil, err
	}
	recordCacheLookup("commodities", lookup.State)

	if lookup.State == cache.StateFresh {
		return formatCommodities(s.now(), commodityItems(lookup.Payload)), nil, nil
	}

	result := s.market.ListCommodities(ctx)
	recordUpstreamCall(upstream.ToolListCommodities, result)

	if result.Success {
		items := result.DataList()
		payload, err := json.Marshal(map[string]any{"commodities": items})
		if err != nil {
			return nil, nil, err
		}
		if err := s.cache.Store("commodities", params, payload); err != nil {
			return nil, nil, err
		}
		return formatCommodities(s.now(), items), nil, nil
	}

	if lookup.State == cache.StateStale {
		resp := formatCommodities(s.now(), commodityItems(lookup.Payload))
		resp.Answer = staleDataPrefix + resp.Answer
		return resp, nil, nil
	}

	items := make([]any, 0, len(KnownCommodities))
	for _, c := range KnownCommodities {
		items = append(items, map[string]any{"symbol": c.Symbol, "name": c.Name})
	}
	resp := formatCommodities(s.now(), items)
	resp.Answer = knownListPrefix + resp.Answer
	return resp, nil, nil
}

// commodityItems unwraps the cached {"commodities": [...]} payload.
func commodityItems(payload json.RawMessage) []any {
	var wrapper struct {
		Commodities []any `json:"commodities"`
	}
	_ = json.Unmarshal(payload, &wrapper)
	return wrapper.Commodities
}
