package bsp

import (
	"strings"
)

// String lists the tree in order (back subtree, node, front subtree). Each
// node prints its plane followed by its coincident segments. The layout is
// meant for people and may change.
func (t *Tree) String() string {
	if t.Empty() {
		return ""
	}

	var sb strings.Builder
	stack := []visit{{node: t.root}}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v.emit {
			sb.WriteString(v.node.plane.String())
			sb.WriteByte('\n')
			for _, s := range v.node.coincident {
				sb.WriteString("  ")
				sb.WriteString(s.String())
				sb.WriteByte('\n')
			}
			continue
		}

		if v.node.front != nil {
			stack = append(stack, visit{node: v.node.front})
		}
		stack = append(stack, visit{node: v.node, emit: true})
		if v.node.back != nil {
			stack = append(stack, visit{node: v.node.back})
		}
	}
	return sb.String()
}
