// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package upstream

import (
	"encoding/json"
	"fmt"
)

// rpcRequest is the JSON-RPC 2.0 envelope sent to POST <upstream>/mcp.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// rpcError is the standard JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcEnvelope is the top half of an upstream response.
type rpcEnvelope struct {
	Error  *rpcError       `json:"error"`
	Result json.RawMessage `json:"result"`
}

// toolBody is the tool-call result shape. StructuredContent is preferred
// when present; Content carries the text fallback.
type toolBody struct {
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	Content           []contentBlock  `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// normalizeResponse reduces the upstream's varying payload shapes to one
// (data, error message) pair. An empty message means success. The order of
// checks is fixed:
//
//  1. non-200 HTTP status
//  2. top-level JSON-RPC error object
//  3. result.isError with content[0].text
//  4. result.structuredContent as the payload
//  5. result.content[0].text, JSON-parsed when possible, else wrapped as
//     {"text": <raw>}
//  6. no content at all: success with no data
func normalizeResponse(status int, body []byte) (json.RawMessage, string) {
	if status != 200 {
		return nil, fmt.Sprintf("upstream returned status %d", status)
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "upstream error: " + err.Error()
	}

	if envelope.Error != nil {
		if envelope.Error.Message == "" {
			return nil, "unknown upstream error"
		}
		return nil, envelope.Error.Message
	}

	if isJSONAbsent(envelope.Result) {
		return nil, ""
	}

	var result toolBody
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return nil, "upstream error: " + err.Error()
	}

	if result.IsError {
		if len(result.Content) > 0 && result.Content[0].Text != "" {
			return nil, result.Content[0].Text
		}
		return nil, "unknown error"
	}

	if !isJSONAbsent(result.StructuredContent) {
		return result.StructuredContent, ""
	}

	if len(result.Content) > 0 {
		text := result.Content[0].Text
		if json.Valid([]byte(text)) {
			return json.RawMessage(text), ""
		}
		wrapped, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return nil, "upstream error: " + err.Error()
		}
		return wrapped, ""
	}

	return nil, ""
}

// isJSONAbsent treats a missing field and an explicit null the same way.
func isJSONAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
