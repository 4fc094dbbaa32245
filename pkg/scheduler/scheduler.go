// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/smysle/agent-memory/internal/embeddings"
	"github.com/smysle/agent-memory/internal/sleep"
)

// Scheduler runs periodic background maintenance: Ebbinghaus decay plus the
// embed-missing sweep. Tidy and govern stay caller-driven through the
// reflect tool; only the passes that are safe to fire unattended run here.
type Scheduler struct {
	engine     *sleep.Engine
	embeddings *embeddings.Service
	agentID    string
	interval   time.Duration
	sweepBatch int
	stopChan   chan bool
}

// NewScheduler creates a maintenance scheduler for one agent scope.
func NewScheduler(engine *sleep.Engine, embSvc *embeddings.Service, agentID string, intervalMinutes, sweepBatch int) *Scheduler {
	return &Scheduler{
		engine:     engine,
		embeddings: embSvc,
		agentID:    agentID,
		interval:   time.Duration(intervalMinutes) * time.Minute,
		sweepBatch: sweepBatch,
		stopChan:   make(chan bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopChan <- true
}

// runOnce executes one maintenance pass
func (s *Scheduler) runOnce() {
	report, err := s.engine.Decay(s.agentID)
	if err != nil {
		log.Printf("Scheduled decay failed: %v", err)
	} else if report.Updated > 0 {
		log.Printf("Scheduled decay: %d updated, %d decayed, %d below threshold",
			report.Updated, report.Decayed, report.BelowThreshold)
	}

	if s.embeddings.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		embedded, err := s.embeddings.EmbedMissing(ctx, s.agentID, s.sweepBatch)
		if err != nil {
			log.Printf("Embedding sweep stopped after %d memories: %v", embedded, err)
		} else if embedded > 0 {
			log.Printf("Embedding sweep: %d memories embedded", embedded)
		}
	}
}
