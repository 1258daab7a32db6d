package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init creates the process-wide node. machineID must be unique per running instance (0-1023).
// Calling it more than once has no effect.
func Init(machineID int64) {
	nodeOnce.Do(func() {
		if machineID < 0 || machineID > 1023 {
			zap.L().Warn("invalid snowflake machine id, using 1", zap.Int64("machineID", machineID))
			machineID = 1
		}
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			zap.L().Fatal("failed to initialize snowflake node", zap.Error(err))
		}
		zap.L().Info("snowflake node initialized", zap.Int64("machineID", machineID))
	})
}

// GenerateID returns a new time-ordered id.
func GenerateID() int64 {
	Init(1)
	return node.Generate().Int64()
}

// GenerateIDString returns a new id as a decimal string (safe for JavaScript clients).
func GenerateIDString() string {
	Init(1)
	return node.Generate().String()
}
