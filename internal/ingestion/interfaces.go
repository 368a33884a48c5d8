package ingestion

import (
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Sink receives parsed records. *records.Store satisfies it.
type Sink interface {
	// ReplaceAll swaps the whole record set for the batch
	ReplaceAll(batch []types.InteractionRecord) error

	// Append adds the batch on top of the existing records
	Append(batch []types.InteractionRecord) error
}

// Mode selects how an upload is applied to a Sink
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// ParseMode maps a query value to a Mode. Empty means replace.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeReplace:
		return ModeReplace, true
	case ModeAppend:
		return ModeAppend, true
	}
	return "", false
}
