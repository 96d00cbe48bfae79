package collab

import (
	"fmt"
	"time"

	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/typeid"
)

// ApplyOperation applies op to s in place. A segment.add without an id gets
// a fresh one, recorded back into op.
func ApplyOperation(s *scene.Scene, op *Operation) error {
	switch op.Type {
	case OpSegmentAdd:
		return applyAdd(s, op)
	case OpSegmentRemove:
		return applyRemove(s, op)
	case OpSegmentMove:
		return applyMove(s, op)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func applyAdd(s *scene.Scene, op *Operation) error {
	if op.Segment == nil {
		return fmt.Errorf("segment.add without segment")
	}
	seg := *op.Segment
	if seg.ID == "" {
		seg.ID = typeid.NewSegmentID()
	}
	if s.SegmentIndex(seg.ID) >= 0 {
		return fmt.Errorf("segment already exists: %s", seg.ID)
	}
	op.SegmentID = seg.ID

	// Insert at specific index, append otherwise
	if op.Index != nil && *op.Index >= 0 && *op.Index <= len(s.Segments) {
		i := *op.Index
		segs := make([]scene.Segment, 0, len(s.Segments)+1)
		segs = append(segs, s.Segments[:i]...)
		segs = append(segs, seg)
		segs = append(segs, s.Segments[i:]...)
		s.Segments = segs
	} else {
		s.Segments = append(s.Segments, seg)
	}
	return nil
}

func applyRemove(s *scene.Scene, op *Operation) error {
	i := s.SegmentIndex(op.SegmentID)
	if i < 0 {
		return fmt.Errorf("segment not found: %s", op.SegmentID)
	}
	s.Segments = append(s.Segments[:i], s.Segments[i+1:]...)
	return nil
}

func applyMove(s *scene.Scene, op *Operation) error {
	i := s.SegmentIndex(op.SegmentID)
	if i < 0 {
		return fmt.Errorf("segment not found: %s", op.SegmentID)
	}
	if op.Start == nil || op.End == nil {
		return fmt.Errorf("segment.move needs start and end")
	}
	s.Segments[i].Start = *op.Start
	s.Segments[i].End = *op.End
	return nil
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
