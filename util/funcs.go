package util

import (
	"fmt"
	"strings"
)

// JoinString renders every element with fmt.Stringer and joins with sep.
func JoinString[A fmt.Stringer](elems []A, sep string) string {
	strs := make([]string, len(elems))
	for i, elem := range elems {
		strs[i] = elem.String()
	}
	return strings.Join(strs, sep)
}
