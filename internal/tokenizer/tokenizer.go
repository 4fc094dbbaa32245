// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tokenizer

import (
	"log"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
)

// MaxTokens caps the tokenizer output for both indexing and querying.
const MaxTokens = 30

// stopwords is the fixed set of Chinese function words filtered from output.
var stopwords = map[string]bool{
	"的": true, "了": true, "在": true, "是": true, "我": true,
	"有": true, "和": true, "就": true, "不": true, "人": true,
	"都": true, "一": true, "上": true, "也": true, "很": true,
	"到": true, "说": true, "要": true, "去": true, "你": true,
	"会": true, "着": true, "没有": true, "看": true, "好": true,
	"这": true, "一个": true,
}

// junk matches every rune outside word characters, CJK Unified Ideographs,
// Hiragana, Katakana, Hangul and whitespace.
var junk = regexp.MustCompile(`[^\w\x{4e00}-\x{9fff}\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{ac00}-\x{d7af}\s]+`)

// Tokenizer produces deterministic token lists for the full-text index and
// for query construction. The CJK segmenter is loaded lazily on first use;
// if loading fails the tokenizer falls back to unigrams plus bigrams, so
// segmentation quality degrades but output never becomes empty.
type Tokenizer struct {
	once   sync.Once
	seg    gse.Segmenter
	segErr error
}

// New creates a tokenizer. The segmenter dictionary is not loaded until the
// first CJK run is encountered.
func New() *Tokenizer {
	return &Tokenizer{}
}

func (t *Tokenizer) segmenter() *gse.Segmenter {
	t.once.Do(func() {
		if err := t.seg.LoadDict(); err != nil {
			t.segErr = err
			log.Printf("Warning: CJK segmenter unavailable, using bigram fallback: %v", err)
		}
	})
	if t.segErr != nil {
		return nil
	}
	return &t.seg
}

// Tokenize returns the deduplicated token list for text, capped at MaxTokens.
func (t *Tokenizer) Tokenize(text string) []string {
	cleaned := junk.ReplaceAllString(text, " ")

	var raw []string
	for _, field := range strings.Fields(cleaned) {
		raw = append(raw, t.splitField(field)...)
	}

	seen := make(map[string]bool, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
		if len(tokens) >= MaxTokens {
			break
		}
	}
	return tokens
}

// IndexText joins the token list with single spaces. The full-text table uses
// a Unicode word tokenizer, so feeding it pre-segmented tokens keeps the
// index side consistent with query-side tokenization.
func (t *Tokenizer) IndexText(text string) string {
	return strings.Join(t.Tokenize(text), " ")
}

// splitField separates a whitespace-free field into Latin/numeric words and
// CJK runs, tokenizing each run.
func (t *Tokenizer) splitField(field string) []string {
	var out []string
	var latin, cjk []rune

	flushLatin := func() {
		if len(latin) > 1 {
			out = append(out, strings.ToLower(string(latin)))
		}
		latin = latin[:0]
	}
	flushCJK := func() {
		if len(cjk) > 0 {
			out = append(out, t.segmentCJK(string(cjk))...)
		}
		cjk = cjk[:0]
	}

	for _, r := range field {
		if isCJK(r) {
			flushLatin()
			cjk = append(cjk, r)
		} else {
			flushCJK()
			latin = append(latin, r)
		}
	}
	flushLatin()
	flushCJK()
	return out
}

// segmentCJK tokenizes one contiguous CJK run. Search-mode segmentation when
// the dictionary is available, otherwise the union of unigrams and
// consecutive bigrams.
func (t *Tokenizer) segmentCJK(run string) []string {
	if seg := t.segmenter(); seg != nil {
		segs := seg.CutSearch(run, true)
		out := make([]string, 0, len(segs))
		for _, s := range segs {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	runes := []rune(run)
	out := make([]string, 0, len(runes)*2)
	for i, r := range runes {
		out = append(out, string(r))
		if i+1 < len(runes) {
			out = append(out, string(runes[i:i+2]))
		}
	}
	return out
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		(r >= 0x3040 && r <= 0x30ff) ||
		(r >= 0xac00 && r <= 0xd7af)
}

// IsStopword reports whether tok is in the fixed stopword set.
func IsStopword(tok string) bool {
	return stopwords[tok]
}
