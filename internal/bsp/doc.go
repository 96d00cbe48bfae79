// Package bsp builds a binary space partitioning tree over 2D line segments
// and answers the back-to-front order of those segments for any eye point,
// which is the order a painter's-algorithm renderer draws them in.
//
// Build consumes segments in the order given. The first segment of each list
// becomes the partition of its node, and segments crossing that partition are
// split at the intersection. Query then walks the tree from the eye's point
// of view:
//
//	tree, err := bsp.Build(segments)
//	if err != nil {
//		return err
//	}
//	for _, s := range tree.Query(bsp.Point{X: 10, Y: 10}) {
//		draw(s)
//	}
//
// Trees are immutable and safe for concurrent queries.
package bsp
