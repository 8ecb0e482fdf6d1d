package parser

import (
	"strings"

	"github.com/corewald/tera/ast"
)

const wsCutset = " \t\r\n"

// applyWhitespace implements the post-parse whitespace-control pass of
// spec §4.1: trims Text neighbours of tags per their WS flags, recurses
// into composite-node bodies, and drops Comment nodes (keeping only
// their WS influence on neighbours) and any Text node that becomes
// empty.
func applyWhitespace(nodes []ast.Node) []ast.Node {
	return processList(nodes)
}

// trimBody recursively processes a nested body, then trims its first/
// last Text node according to the WS flags of the tags bracketing it
// (the enclosing tag's Right flag on the left edge, the next tag's Left
// flag on the right edge).
func trimBody(body []ast.Node, leftWS, rightWS bool) []ast.Node {
	processed := processList(body)
	if leftWS && len(processed) > 0 {
		if t, ok := processed[0].(*ast.Text); ok {
			t.Value = strings.TrimLeft(t.Value, wsCutset)
			if t.Value == "" {
				processed = processed[1:]
			}
		}
	}
	if rightWS && len(processed) > 0 {
		last := len(processed) - 1
		if t, ok := processed[last].(*ast.Text); ok {
			t.Value = strings.TrimRight(t.Value, wsCutset)
			if t.Value == "" {
				processed = processed[:last]
			}
		}
	}
	return processed
}

func processList(list []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(list))
	pendingLeftTrim := false

	appendText := func(t *ast.Text) {
		v := t.Value
		if pendingLeftTrim {
			v = strings.TrimLeft(v, wsCutset)
			pendingLeftTrim = false
		}
		if v == "" {
			return
		}
		t.Value = v
		out = append(out, t)
	}

	trimPrevSuffix := func() {
		if len(out) == 0 {
			return
		}
		if t, ok := out[len(out)-1].(*ast.Text); ok {
			t.Value = strings.TrimRight(t.Value, wsCutset)
			if t.Value == "" {
				out = out[:len(out)-1]
			}
		}
	}

	leaf := func(left, right bool, n ast.Node) {
		if left {
			trimPrevSuffix()
		}
		out = append(out, n)
		if right {
			pendingLeftTrim = true
		}
	}

	for _, n := range list {
		switch v := n.(type) {
		case *ast.Text:
			appendText(v)
		case *ast.Comment:
			if v.WS.Left {
				trimPrevSuffix()
			}
			if v.WS.Right {
				pendingLeftTrim = true
			}
		case *ast.VariableBlock:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Set:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Break:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Continue:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Include:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Extends:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.ImportMacro:
			leaf(v.WS.Left, v.WS.Right, v)
		case *ast.Super:
			out = append(out, v)
		case *ast.Raw:
			if v.WSOpen.Left {
				trimPrevSuffix()
			}
			val := v.Value
			if v.WSOpen.Right {
				val = strings.TrimLeft(val, wsCutset)
			}
			if v.WSClose.Left {
				val = strings.TrimRight(val, wsCutset)
			}
			v.Value = val
			out = append(out, v)
			if v.WSClose.Right {
				pendingLeftTrim = true
			}
		case *ast.If:
			if len(v.Branches) > 0 && v.Branches[0].WS.Left {
				trimPrevSuffix()
			}
			for i := range v.Branches {
				leftWS := v.Branches[i].WS.Right
				var rightWS bool
				switch {
				case i+1 < len(v.Branches):
					rightWS = v.Branches[i+1].WS.Left
				case v.HasElse:
					rightWS = v.ElseWS.Left
				default:
					rightWS = v.EndWS.Left
				}
				v.Branches[i].Body = trimBody(v.Branches[i].Body, leftWS, rightWS)
			}
			if v.HasElse {
				v.Else = trimBody(v.Else, v.ElseWS.Right, v.EndWS.Left)
			}
			out = append(out, v)
			if v.EndWS.Right {
				pendingLeftTrim = true
			}
		case *ast.ForLoop:
			if v.WS.Left {
				trimPrevSuffix()
			}
			bodyRightWS := v.EndWS.Left
			if v.HasEmpty {
				bodyRightWS = v.EmptyWS.Left
			}
			v.Body = trimBody(v.Body, v.WS.Right, bodyRightWS)
			if v.HasEmpty {
				v.Empty = trimBody(v.Empty, v.EmptyWS.Right, v.EndWS.Left)
			}
			out = append(out, v)
			if v.EndWS.Right {
				pendingLeftTrim = true
			}
		case *ast.Block:
			if v.WS.Left {
				trimPrevSuffix()
			}
			v.Body = trimBody(v.Body, v.WS.Right, v.EndWS.Left)
			out = append(out, v)
			if v.EndWS.Right {
				pendingLeftTrim = true
			}
		case *ast.MacroDefinition:
			if v.WS.Left {
				trimPrevSuffix()
			}
			v.Body = trimBody(v.Body, v.WS.Right, v.EndWS.Left)
			out = append(out, v)
			if v.EndWS.Right {
				pendingLeftTrim = true
			}
		case *ast.FilterSection:
			if v.WS.Left {
				trimPrevSuffix()
			}
			v.Body = trimBody(v.Body, v.WS.Right, v.EndWS.Left)
			out = append(out, v)
			if v.EndWS.Right {
				pendingLeftTrim = true
			}
		default:
			out = append(out, n)
		}
	}
	return out
}
