// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package guard implements the admission pipeline that classifies every
// incoming write as add, update, merge or skip. The guard performs no
// mutation; the caller applies the decision.
package guard

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/smysle/agent-memory/internal/database"
	"github.com/smysle/agent-memory/internal/memory"
)

// Action is the guard's classification of a write.
type Action string

// Guard actions.
const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionMerge  Action = "merge"
	ActionSkip   Action = "skip"
)

// mergeCandidates is how many full-text matches the similarity stage ranks.
const mergeCandidates = 3

// mergeTokenLimit caps the tokens used to build the similarity query.
const mergeTokenLimit = 8

// mergeRankFactor scales token count into the similarity threshold. The
// constant is calibrated against the sqlite FTS5 bm25 rank scale.
const mergeRankFactor = 1.5

// Input is an incoming write.
type Input struct {
	AgentID  string
	Content  string
	Type     string
	URI      string
	Priority *int
}

// Decision is the guard's output: what to do, why, and where.
type Decision struct {
	Action         Action   `json:"action"`
	Reason         string   `json:"reason"`
	TargetID       string   `json:"target_id,omitempty"`
	MergedContent  string   `json:"merged_content,omitempty"`
	FailedCriteria []string `json:"failed_criteria,omitempty"`
}

// Guard runs the admission pipeline against the entity layer.
type Guard struct {
	store *memory.Store
}

// New creates a write guard.
func New(store *memory.Store) *Guard {
	return &Guard{store: store}
}

// Check classifies an incoming write. Stages run in order and the first
// match wins: exact duplicate, URI conflict, similarity merge, quality gate.
func (g *Guard) Check(input Input) (*Decision, error) {
	content := strings.TrimSpace(input.Content)
	agentID := input.AgentID
	if agentID == "" {
		agentID = database.DefaultAgentID
	}

	// Stage 1: exact duplicate by content hash.
	existing, err := g.store.FindByHash(agentID, memory.ContentHash(content))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Decision{
			Action:   ActionSkip,
			Reason:   "identical content already stored",
			TargetID: existing.ID,
		}, nil
	}

	// Stage 2: a supplied URI that already resolves means update-in-place.
	if input.URI != "" {
		path, err := g.store.GetPathByURI(agentID, input.URI)
		if err != nil {
			return nil, err
		}
		if path != nil {
			return &Decision{
				Action:   ActionUpdate,
				Reason:   fmt.Sprintf("uri %s already anchored", input.URI),
				TargetID: path.MemoryID,
			}, nil
		}
	}

	// Stage 3: a sufficiently strong lexical match of the same type merges.
	if dec := g.checkSimilarity(agentID, content, input.Type); dec != nil {
		return dec, nil
	}

	// Stage 4: quality gate.
	priority := database.DefaultPriority(input.Type)
	if input.Priority != nil {
		priority = *input.Priority
	}
	if failed := g.qualityGate(content, priority); len(failed) > 0 {
		return &Decision{
			Action:         ActionSkip,
			Reason:         "quality gate failed: " + strings.Join(failed, ", "),
			FailedCriteria: failed,
		}, nil
	}

	return &Decision{Action: ActionAdd, Reason: "passed admission checks"}, nil
}

// checkSimilarity looks for an existing same-type memory whose bm25 rank
// against the incoming tokens clears the threshold. Full-text errors are
// treated as no-match; the guard never surfaces them.
func (g *Guard) checkSimilarity(agentID, content, memType string) *Decision {
	head := content
	if runes := []rune(head); len(runes) > 200 {
		head = string(runes[:200])
	}
	tokens := g.store.Tokenizer().Tokenize(head)
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) > mergeTokenLimit {
		tokens = tokens[:mergeTokenLimit]
	}

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	match := strings.Join(quoted, " OR ")

	var rows []struct {
		ID      string
		Type    string
		Content string
		Rank    float64
	}
	err := g.store.DB().Raw(`
		SELECT m.id, m.type, m.content, f.rank
		FROM memories_fts f
		JOIN memories m ON m.id = f.id
		WHERE f.memories_fts MATCH ? AND m.agent_id = ?
		ORDER BY f.rank
		LIMIT ?`, match, agentID, mergeCandidates).Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil
	}

	best := rows[0]
	topRank := math.Abs(best.Rank)
	threshold := float64(len(tokens)) * mergeRankFactor
	if topRank > threshold && best.Type == memType {
		return &Decision{
			Action:        ActionMerge,
			Reason:        fmt.Sprintf("high lexical overlap with existing %s memory (rank %.1f > %.1f)", memType, topRank, threshold),
			TargetID:      best.ID,
			MergedContent: best.Content + "\n\n[Updated] " + content,
		}
	}
	return nil
}

var (
	capitalizedWord = regexp.MustCompile(`(^|\s)[A-Z][a-zA-Z]+`)
	uriLike         = regexp.MustCompile(`[a-z]+://\S`)
	allCapsMonolith = regexp.MustCompile(`^[A-Z ]+$`)
)

// qualityGate applies the four admission criteria and returns the failing
// list. Every criterion must pass for the write to be admitted.
func (g *Guard) qualityGate(content string, priority int) []string {
	var failed []string

	runes := []rune(content)

	// Specificity: high-priority memories may be short, the rest need more.
	minLen := 8
	if priority <= 1 {
		minLen = 4
	}
	if len(runes) < minLen {
		failed = append(failed, "specificity")
	}

	// Novelty: at least one non-stopword token must survive tokenization.
	if len(g.store.Tokenizer().Tokenize(content)) == 0 {
		failed = append(failed, "novelty")
	}

	if !g.relevant(content, runes) {
		failed = append(failed, "relevance")
	}

	if g.coherenceScore(content, runes) < 0.3 {
		failed = append(failed, "coherence")
	}

	return failed
}

// relevant passes when the content carries at least one anchoring signal.
func (g *Guard) relevant(content string, runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			return true
		}
		if unicode.IsDigit(r) {
			return true
		}
		if r == '@' || r == '#' {
			return true
		}
	}
	if capitalizedWord.MatchString(content) {
		return true
	}
	if uriLike.MatchString(content) {
		return true
	}
	return len(runes) >= 15
}

// coherenceScore starts at 1.0 and deducts for degenerate shapes.
func (g *Guard) coherenceScore(content string, runes []rune) float64 {
	score := 1.0

	if len(runes) > 20 && allCapsMonolith.MatchString(content) {
		score -= 0.5
	}

	if len(runes) > 20 && !strings.ContainsFunc(content, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) {
		score -= 0.3
	}

	run := 0
	var prev rune
	for i, r := range runes {
		if i > 0 && r == prev {
			run++
			if run >= 9 { // 10 identical runes in a row
				score -= 0.5
				break
			}
		} else {
			run = 0
		}
		prev = r
	}

	return score
}
