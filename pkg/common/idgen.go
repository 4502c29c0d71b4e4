package common

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

// IDGenerator issues unique record identifiers
type IDGenerator interface {
	NextID() string
}

// SnowflakeGenerator generates time ordered 64 bit ids rendered as decimal strings
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator nodeID must be in [0, 1023]
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrapf(err, "snowflake node %d", nodeID)
	}
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) NextID() string {
	return g.node.Generate().String()
}
