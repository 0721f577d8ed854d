// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transcript

import "strings"

// per-million-token pricing, USD. Mirrors the original indexer's pricing
// table; unrecognized models fall into the haiku/unknown tier.
type pricing struct {
	input, output, cacheRead, cacheCreate float64
}

var (
	opusPricing = pricing{input: 15.0, output: 75.0, cacheRead: 1.5, cacheCreate: 18.75}
	sonnetPricing = pricing{input: 3.0, output: 15.0, cacheRead: 0.30, cacheCreate: 3.75}
	defaultPricing = pricing{input: 0.80, output: 4.0, cacheRead: 0.08, cacheCreate: 1.0}
)

// EstimateCost estimates USD cost for a token usage tuple, using Anthropic's
// published per-model pricing tiers. Model name matching is a case
// insensitive substring check ("opus", "sonnet"); anything else, including
// an empty model string, uses the haiku/unknown tier.
func EstimateCost(inputTokens, outputTokens, cacheRead, cacheCreate int64, model string) float64 {
	p := defaultPricing
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "opus"):
		p = opusPricing
	case strings.Contains(lower, "sonnet"):
		p = sonnetPricing
	}

	cost := float64(inputTokens)/1_000_000*p.input +
		float64(outputTokens)/1_000_000*p.output +
		float64(cacheRead)/1_000_000*p.cacheRead +
		float64(cacheCreate)/1_000_000*p.cacheCreate

	return round2(cost)
}

func round2(f float64) float64 {
	// avoid importing math just for Round; 2-decimal rounding by hand
	scaled := f*100 + 0.5
	if scaled < 0 {
		scaled -= 1
	}
	return float64(int64(scaled)) / 100
}
