package board

import "errors"

// Error kinds returned by Board operations. Callers match them with errors.Is;
// the returned errors wrap these with the offending machine or position.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrSlotOccupied    = errors.New("slot is occupied")
	ErrSlotNotOccupied = errors.New("slot is not occupied")
	ErrLastMachine     = errors.New("cannot remove the last active machine")
)
