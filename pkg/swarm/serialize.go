package swarm

import (
	"time"

	"github.com/RHUDHRESH/Raptorflow-sub035/pkg/snapshot"
)

// Snapshot serializes the consolidated store into a snapshot record for the
// external persistence collaborator. The engine itself never calls this; an
// external scheduler does.
func (m *ConsolidatedMemory) Snapshot() *snapshot.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record := &snapshot.Record{
		WorkspaceID:          m.workspaceID,
		ConsolidationVersion: m.consolidationVersion,
		LastConsolidation:    m.lastConsolidation,
		CapturedAt:           time.Now(),
		Fragments:            make([]snapshot.FragmentRecord, 0, len(m.fragments)),
	}

	for _, f := range m.fragments {
		record.Fragments = append(record.Fragments, snapshot.FragmentRecord{
			ID:              f.ID,
			WorkspaceID:     f.WorkspaceID,
			AgentID:         f.AgentID,
			AgentType:       f.AgentType,
			Content:         f.Content,
			ImportanceScore: f.ImportanceScore,
			Tier:            f.Tier.String(),
			AccessCount:     f.AccessCount,
			CreatedAt:       f.CreatedAt,
			LastAccessed:    f.LastAccessed,
			Embedding:       append([]float64(nil), f.Embedding...),
			Metadata:        f.Metadata,
		})
	}
	return record
}

// RestoreConsolidatedMemory rebuilds a consolidated store from a snapshot
// record. Fragments whose workspace does not match the record are dropped
// with the same local-rejection semantics as Add.
func RestoreConsolidatedMemory(record *snapshot.Record, cfg *Config) *ConsolidatedMemory {
	m := NewConsolidatedMemory(record.WorkspaceID, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.consolidationVersion = record.ConsolidationVersion
	m.lastConsolidation = record.LastConsolidation

	for _, fr := range record.Fragments {
		f := &Fragment{
			ID:              fr.ID,
			WorkspaceID:     fr.WorkspaceID,
			AgentID:         fr.AgentID,
			AgentType:       fr.AgentType,
			Content:         fr.Content,
			ImportanceScore: fr.ImportanceScore,
			Tier:            ParseTier(fr.Tier),
			AccessCount:     fr.AccessCount,
			CreatedAt:       fr.CreatedAt,
			LastAccessed:    fr.LastAccessed,
			Embedding:       append([]float64(nil), fr.Embedding...),
			Metadata:        fr.Metadata,
		}
		if err := f.validate(record.WorkspaceID); err != nil {
			continue
		}
		m.fragments = append(m.fragments, f)
		m.agentUsage[f.AgentID]++
	}
	return m
}
