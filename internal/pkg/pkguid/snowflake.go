package pkguid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Epoch is the Snowflake epoch in milliseconds (2024-01-01T00:00:00Z).
const Epoch int64 = 1704067200000

// RandomNode asks NewSnowflakeNode to pick a node number itself.
const RandomNode int64 = -1

var epochOnce sync.Once

// Snowflake generates numeric IDs using the Snowflake algorithm.
type Snowflake struct {
	node *snowflake.Node
}

func generateRandomNodeID() (int64, error) {
	var nodeID int64
	if err := binary.Read(rand.Reader, binary.BigEndian, &nodeID); err != nil {
		return 0, err
	}

	return nodeID & (1<<snowflake.NodeBits - 1), nil
}

// NewSnowflake constructs a Snowflake generator with a random node ID.
func NewSnowflake() (*Snowflake, error) {
	return NewSnowflakeNode(RandomNode)
}

// NewSnowflakeNode constructs a generator bound to node, or to a random
// node when node is RandomNode.
func NewSnowflakeNode(node int64) (*Snowflake, error) {
	// the library keeps the epoch in a package variable shared by all nodes
	epochOnce.Do(func() { snowflake.Epoch = Epoch })

	if node == RandomNode {
		var err error
		if node, err = generateRandomNodeID(); err != nil {
			return nil, fmt.Errorf("pkguid: random node id: %w", err)
		}
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("pkguid: %w", err)
	}

	return &Snowflake{node: n}, nil
}

// Generate returns a new unique numeric ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
