package chat

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator hands out time-ordered message identifiers.
type IDGenerator interface {
	Next() string
}

type snowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs returns an IDGenerator backed by a snowflake node.
// IDs are time-ordered and unique across instances with distinct node ids.
func NewSnowflakeIDs(nodeID int64) (IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &snowflakeIDs{node: node}, nil
}

func (g *snowflakeIDs) Next() string {
	return g.node.Generate().String()
}
