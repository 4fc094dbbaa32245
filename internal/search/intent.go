// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"math"
	"regexp"

	"github.com/smysle/agent-memory/internal/tokenizer"
)

// Intent is the query-intent bucket driving retrieval strategy.
type Intent string

// Intent buckets.
const (
	IntentFactual     Intent = "factual"
	IntentTemporal    Intent = "temporal"
	IntentCausal      Intent = "causal"
	IntentExploratory Intent = "exploratory"
)

// Classification is the classifier output.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Strategy tunes the final weighting pass per intent.
type Strategy struct {
	BoostRecent   bool
	BoostPriority bool
	Limit         int
}

// strategies maps each intent to its retrieval strategy.
var strategies = map[Intent]Strategy{
	IntentFactual:     {BoostRecent: false, BoostPriority: true, Limit: 5},
	IntentTemporal:    {BoostRecent: true, BoostPriority: false, Limit: 10},
	IntentCausal:      {BoostRecent: false, BoostPriority: false, Limit: 10},
	IntentExploratory: {BoostRecent: false, BoostPriority: false, Limit: 15},
}

// StrategyFor returns the retrieval strategy for an intent.
func StrategyFor(intent Intent) Strategy {
	if s, ok := strategies[intent]; ok {
		return s
	}
	return strategies[IntentFactual]
}

// Bilingual pattern sets per bucket. Matches accumulate a point each;
// anchored patterns add a structural boost.
var intentPatterns = map[Intent][]*regexp.Regexp{
	IntentTemporal: {
		regexp.MustCompile(`(?i)\b(when|yesterday|today|tomorrow|recently|ago|last\s+(week|month|year|time)|latest)\b`),
		regexp.MustCompile(`昨天|今天|明天|最近|以前|之前|后来|现在|刚才|上次|什么时候`),
		regexp.MustCompile(`\d{4}[-/年]\d{1,2}`),
		regexp.MustCompile(`\d{1,2}[:点]\d{0,2}`),
	},
	IntentCausal: {
		regexp.MustCompile(`(?i)\b(why|because|cause[ds]?|reason|therefore|due\s+to|result(ed)?\s+in)\b`),
		regexp.MustCompile(`为什么|为啥|因为|所以|导致|原因|由于|结果`),
	},
	IntentExploratory: {
		regexp.MustCompile(`(?i)\b(explore|overview|summar(y|ize)|list|all|everything|related|about|tell\s+me)\b`),
		regexp.MustCompile(`了解|浏览|总结|概述|看看|所有|相关|介绍|讲讲`),
	},
	IntentFactual: {
		regexp.MustCompile(`(?i)\b(what|who|where|which|how\s+(many|much)|is|are|does|did)\b`),
		regexp.MustCompile(`什么|谁|哪里|哪个|多少|是不是|有没有|怎么`),
	},
}

// Anchored forms are stronger signals than a match buried mid-query.
var intentAnchors = map[Intent][]*regexp.Regexp{
	IntentTemporal: {
		regexp.MustCompile(`(?i)^when\b`),
		regexp.MustCompile(`^什么时候`),
	},
	IntentCausal: {
		regexp.MustCompile(`(?i)^why\b`),
		regexp.MustCompile(`^(为什么|为啥)`),
	},
	IntentExploratory: {
		regexp.MustCompile(`(?i)^(tell\s+me\s+about|list|show\s+me)\b`),
		regexp.MustCompile(`^(介绍|讲讲|总结)`),
	},
	IntentFactual: {
		regexp.MustCompile(`(?i)^(what|who|where|which)\b`),
		regexp.MustCompile(`^(什么|谁|哪里|哪个)`),
	},
}

const anchorBoost = 0.5

// Classify scores the four intent buckets against the query. Short queries
// with no pattern hits bias to factual; confidence caps at 0.95.
func Classify(query string, tk *tokenizer.Tokenizer) Classification {
	scores := map[Intent]float64{}
	total := 0.0

	for intent, patterns := range intentPatterns {
		for _, p := range patterns {
			if p.MatchString(query) {
				scores[intent]++
				total++
			}
		}
	}
	for intent, anchors := range intentAnchors {
		for _, p := range anchors {
			if p.MatchString(query) {
				scores[intent] += anchorBoost
				total += anchorBoost
			}
		}
	}

	if total == 0 {
		// Short pattern-free queries are keyword lookups; longer ones read
		// as browsing.
		if len(tk.Tokenize(query)) <= 3 {
			return Classification{Intent: IntentFactual, Confidence: 0.5}
		}
		return Classification{Intent: IntentExploratory, Confidence: 0.5}
	}

	best := IntentFactual
	bestScore := 0.0
	// Fixed iteration order keeps tie-breaks deterministic.
	for _, intent := range []Intent{IntentFactual, IntentTemporal, IntentCausal, IntentExploratory} {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}

	return Classification{
		Intent:     best,
		Confidence: math.Min(0.95, bestScore/total),
	}
}
