package editor

import "github.com/menta2k/image-labeler/pkg/types"

// history keeps immutable snapshots of the box list for undo and redo.
// Snapshots are copied on the way in and on the way out.
type history struct {
	undo  [][]types.Box
	redo  [][]types.Box
	limit int // 0 keeps every entry
}

func snapshot(boxes []types.Box) []types.Box {
	out := make([]types.Box, len(boxes))
	copy(out, boxes)
	return out
}

// push records the pre-mutation state and invalidates the redo stack
func (h *history) push(current []types.Box) {
	h.undo = append(h.undo, snapshot(current))
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = h.redo[:0]
}

// stepBack returns the state to restore on undo, saving current for redo
func (h *history) stepBack(current []types.Box) ([]types.Box, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, snapshot(current))
	return snapshot(prev), true
}

// stepForward is the mirror of stepBack
func (h *history) stepForward(current []types.Box) ([]types.Box, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, snapshot(current))
	return snapshot(next), true
}

func (h *history) reset() {
	h.undo = nil
	h.redo = nil
}
