package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"payflow-backend/domain/core/aggregates"
)

// SnapshotVersion fingerprints one exported analysis graph so callers
// can tell whether two exports describe the same graph state.
type SnapshotVersion struct {
	SessionID string    `json:"session_id"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ComputeVersion builds the version record for a snapshot. The checksum
// covers the structural content only (node identities, edges and
// variable names), not timestamps, so re-exporting an unchanged graph
// yields the same checksum.
func ComputeVersion(sessionID string, snap aggregates.Snapshot) (SnapshotVersion, error) {
	checksum, err := structuralChecksum(snap)
	if err != nil {
		return SnapshotVersion{}, err
	}
	return SnapshotVersion{
		SessionID: sessionID,
		Checksum:  checksum,
		NodeCount: len(snap.Nodes),
		EdgeCount: len(snap.Edges),
		CreatedAt: time.Now(),
	}, nil
}

type structuralEdge struct {
	From           string `json:"from"`
	To             string `json:"to"`
	VariablePassed string `json:"variable_passed"`
}

type structuralContent struct {
	InputVariables        []string              `json:"input_variables"`
	IntermediateVariables []string              `json:"intermediate_variables"`
	Nodes                 []aggregates.NodeView `json:"nodes"`
	Edges                 []structuralEdge      `json:"edges"`
	OutputVariables       []string              `json:"output_variables"`
}

func structuralChecksum(snap aggregates.Snapshot) (string, error) {
	content := structuralContent{
		InputVariables:        snap.Summary.InputVariables,
		IntermediateVariables: snap.Summary.IntermediateVariables,
		Nodes:                 snap.Nodes,
		OutputVariables:       snap.OutputVariables,
	}
	for _, edge := range snap.Edges {
		content.Edges = append(content.Edges, structuralEdge{
			From:           edge.From,
			To:             edge.To,
			VariablePassed: edge.VariablePassed,
		})
	}

	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot for checksum: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
