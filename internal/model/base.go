// Package model defines the relational entities of the persistence store.
// Primary keys are snowflake ids assigned on create; timestamps are UTC with microsecond precision.
package model

import (
	"fmt"

	"evo_chat_server/pkg/util/snowflake"
)

// assignID gives a new row its snowflake id unless the caller chose one.
func assignID(id *int64) {
	if *id == 0 {
		*id = snowflake.GenerateID()
	}
}

// PairKey is the canonical key of an unordered user pair, "<min>:<max>".
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
