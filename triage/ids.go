package triage

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out unique issue ids
type IDGenerator interface {
	NextID() string
}

// SnowflakeIDs generates time ordered ids of the form issue-<snowflake>.
// Ids stay unique even when many reports arrive in the same millisecond.
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs creates a generator for the given node number (0-1023)
func NewSnowflakeIDs(nodeID int64) (*SnowflakeIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeIDs{node: node}, nil
}

// NextID implements IDGenerator
func (s *SnowflakeIDs) NextID() string {
	return "issue-" + s.node.Generate().String()
}
