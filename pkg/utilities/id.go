package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids for primary keys. A single node must
// be shared by every caller in the process; two nodes with the same number
// can emit duplicates within the same millisecond.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given node number (0..1023).
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &IDGenerator{node: node}, nil
}

// IDGeneratorFromEnv uses SNOWFLAKE_NODE, defaulting to node 1 when it is
// missing or malformed.
func IDGeneratorFromEnv() (*IDGenerator, error) {
	nodeID := int64(1)
	if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
		nodeID = v
	}
	return NewIDGenerator(nodeID)
}

// Next returns a new id.
func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}
