package graphql

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// Cost 估算查询代价：每个字段计入当前倍数，listField 之下的子树倍数乘以 weight。
// 片段原地展开，只计其中的字段。
type Cost struct {
	ListField string
	Weight    int
}

func (c Cost) Operation(op *ast.OperationDefinition) int {
	if op == nil {
		return 0
	}
	return c.walk(op.SelectionSet, 1)
}

func (c Cost) walk(set ast.SelectionSet, mult int) int {
	total := 0
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			total += mult
			m := mult
			if s.Name == c.ListField {
				m *= c.Weight
			}
			total += c.walk(s.SelectionSet, m)
		case *ast.InlineFragment:
			total += c.walk(s.SelectionSet, mult)
		case *ast.FragmentSpread:
			if s.Definition != nil {
				total += c.walk(s.Definition.SelectionSet, mult)
			}
		}
	}
	return total
}
