package ir

import (
	"fmt"
	"strings"
)

// Dump renders a tree as indented text. The output is deterministic and is
// what golden tests and the inspect command compare against.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	pad := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *List:
		fmt.Fprintf(b, "%slist\n", pad)
		for _, c := range v.Header {
			dump(b, c, depth+1)
		}
		for _, c := range v.Body {
			dump(b, c, depth+1)
		}
		for _, c := range v.Footer {
			dump(b, c, depth+1)
		}
	case *Section:
		fmt.Fprintf(b, "%ssection %s\n", pad, v.Name)
		dump(b, v.Body, depth+1)
	case *Iteration:
		tag := ""
		if v.Block != nil {
			if v.Block.Role == BlockOuter {
				tag = fmt.Sprintf(" block-outer(%s)", v.Block.Param)
			} else {
				tag = fmt.Sprintf(" block-inner(%s)", v.Block.Param)
			}
		}
		seq := "parallel"
		if v.Sequential {
			seq = "sequential"
		}
		fmt.Fprintf(b, "%sfor %s [%d,%d] limit=%d %s%s\n",
			pad, v.Dim.Name, v.OffsetMin, v.OffsetMax, v.Limit, seq, tag)
		for _, c := range v.Body {
			dump(b, c, depth+1)
		}
	case *Expression:
		local := ""
		if v.Local {
			local = "local "
		}
		fmt.Fprintf(b, "%s%s%s\n", pad, local, v.Eq.Fingerprint())
	case *Element:
		switch v.Kind {
		case DeclStack:
			fmt.Fprintf(b, "%sstack %s\n", pad, v.Tensor.Name)
		case DeclHeapAlloc:
			fmt.Fprintf(b, "%salloc %s\n", pad, v.Tensor.Name)
		case DeclHeapFree:
			fmt.Fprintf(b, "%sfree %s\n", pad, v.Tensor.Name)
		}
	case *Call:
		fmt.Fprintf(b, "%scall %s\n", pad, v.Name)
	}
}
