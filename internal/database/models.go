// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"
)

// DefaultAgentID is the tenant scope used when none is configured.
const DefaultAgentID = "default"

// Memory types.
const (
	TypeIdentity  = "identity"
	TypeEmotion   = "emotion"
	TypeKnowledge = "knowledge"
	TypeEvent     = "event"
)

// Link relations.
const (
	RelationRelated     = "related"
	RelationCaused      = "caused"
	RelationReminds     = "reminds"
	RelationEvolved     = "evolved"
	RelationContradicts = "contradicts"
)

// Snapshot actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionMerge  = "merge"
)

// StabilityInfinite is the sentinel stability for memories that never decay.
const StabilityInfinite = 999999

// ValidTypes maps memory types to their default priority.
var ValidTypes = map[string]int{
	TypeIdentity:  0,
	TypeEmotion:   1,
	TypeKnowledge: 2,
	TypeEvent:     3,
}

// ValidRelations is the allowed set of link relations.
var ValidRelations = map[string]bool{
	RelationRelated:     true,
	RelationCaused:      true,
	RelationReminds:     true,
	RelationEvolved:     true,
	RelationContradicts: true,
}

// initialStability maps priority to the starting half-life parameter (days).
var initialStability = map[int]float64{
	0: StabilityInfinite,
	1: 365,
	2: 90,
	3: 14,
}

// vitalityFloor maps priority to the minimum vitality a memory may decay to.
var vitalityFloor = map[int]float64{
	0: 1.0,
	1: 0.3,
	2: 0.1,
	3: 0.0,
}

// DefaultPriority returns the default priority for a memory type.
func DefaultPriority(memType string) int {
	if p, ok := ValidTypes[memType]; ok {
		return p
	}
	return 2
}

// InitialStability returns the starting stability for a priority.
func InitialStability(priority int) float64 {
	if s, ok := initialStability[priority]; ok {
		return s
	}
	return initialStability[2]
}

// VitalityFloor returns the minimum vitality for a priority.
func VitalityFloor(priority int) float64 {
	if f, ok := vitalityFloor[priority]; ok {
		return f
	}
	return 0.0
}

// Memory is the atomic unit of the store.
type Memory struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	AgentID      string     `gorm:"column:agent_id" json:"agent_id"`
	Content      string     `json:"content"`
	Type         string     `json:"type"`
	Priority     int        `json:"priority"`
	EmotionVal   float64    `gorm:"column:emotion_val" json:"emotion_val"`
	Vitality     float64    `json:"vitality"`
	Stability    float64    `json:"stability"`
	AccessCount  int        `gorm:"column:access_count" json:"access_count"`
	LastAccessed *time.Time `gorm:"column:last_accessed" json:"last_accessed,omitempty"`
	Source       string     `json:"source,omitempty"`
	Hash         string     `json:"hash"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Memory
func (Memory) TableName() string {
	return "memories"
}

// Path is a URI anchor onto a memory.
type Path struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	MemoryID  string    `gorm:"column:memory_id" json:"memory_id"`
	AgentID   string    `gorm:"column:agent_id" json:"agent_id"`
	URI       string    `gorm:"column:uri" json:"uri"`
	Alias     string    `json:"alias,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Path
func (Path) TableName() string {
	return "paths"
}

// Link is a directed, typed edge between two memories of the same agent.
type Link struct {
	AgentID   string    `gorm:"column:agent_id;primaryKey" json:"agent_id"`
	SourceID  string    `gorm:"column:source_id;primaryKey" json:"source_id"`
	TargetID  string    `gorm:"column:target_id;primaryKey" json:"target_id"`
	Relation  string    `json:"relation"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Link
func (Link) TableName() string {
	return "links"
}

// Snapshot is an immutable historical copy of a memory's content.
type Snapshot struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	MemoryID  string    `gorm:"column:memory_id" json:"memory_id"`
	Content   string    `json:"content"`
	ChangedBy string    `gorm:"column:changed_by" json:"changed_by,omitempty"`
	Action    string    `json:"action"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}

// Embedding is a dense vector attached to one memory under one named model.
// Vector holds packed little-endian float32 values.
type Embedding struct {
	AgentID   string    `gorm:"column:agent_id;primaryKey" json:"agent_id"`
	MemoryID  string    `gorm:"column:memory_id;primaryKey" json:"memory_id"`
	Model     string    `gorm:"primaryKey" json:"model"`
	Dim       int       `json:"dim"`
	Vector    []byte    `json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Embedding
func (Embedding) TableName() string {
	return "embeddings"
}
