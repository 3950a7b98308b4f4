package template

import "strings"

// The refinement pass runs once per template, right after parsing. It is
// what makes rendered output independent of how deeply the author indented
// the source: block indentation is stripped by nesting depth, the blank
// lines the braces create are trimmed, and lines that held only a comment
// collapse away.

// RefineText normalises a parsed text-template body in place and returns it.
func RefineText(body TextNode) TextNode {
	refineTextNode(body, 1)
	return body
}

// RefineMessages normalises a parsed messages-template body in place.
func RefineMessages(body MessagesNode) MessagesNode {
	refineMessagesNode(body, 1)
	return body
}

func refineTextNode(n TextNode, depth int) {
	switch x := n.(type) {
	case *SequentialNode:
		refineBlock(x, depth)
	case *IfNode:
		refineTextNode(x.Then, depth+1)
		if x.Else != nil {
			if chained, ok := x.Else.(*IfNode); ok {
				// An else-if stays at its sibling's depth.
				refineTextNode(chained, depth)
			} else {
				refineTextNode(x.Else, depth+1)
			}
		}
	case *ForeachNode:
		refineTextNode(x.Body, depth+1)
	}
}

func refineMessagesNode(n MessagesNode, depth int) {
	switch x := n.(type) {
	case *MessagesSequentialNode:
		for _, child := range x.Children {
			refineMessagesNode(child, depth)
		}
	case *EntryNode:
		refineTextNode(x.Body, depth+1)
	case *MessagesIfNode:
		refineMessagesNode(x.Then, depth+1)
		if x.Else != nil {
			if chained, ok := x.Else.(*MessagesIfNode); ok {
				refineMessagesNode(chained, depth)
			} else {
				refineMessagesNode(x.Else, depth+1)
			}
		}
	case *MessagesForeachNode:
		refineMessagesNode(x.Body, depth+1)
	}
}

// refineBlock applies the three plain-text rewrites to one block's child
// list: comment-line newline collapse (then merging the split plains),
// indentation stripping, and boundary trimming. Plains refined down to
// nothing are dropped.
func refineBlock(seq *SequentialNode, depth int) {
	for _, child := range seq.Children {
		if _, isSeq := child.(*SequentialNode); !isSeq {
			refineTextNode(child, depth)
		}
	}

	children := collapseAndMerge(seq.Children)

	for _, child := range children {
		if p, ok := child.(*PlainNode); ok {
			p.Text = stripIndent(p.Text, depth)
		}
	}

	if len(children) > 0 {
		if p, ok := children[0].(*PlainNode); ok {
			p.Text = trimLeadBoundary(p.Text)
		}
		if p, ok := children[len(children)-1].(*PlainNode); ok {
			p.Text = trimTrailBoundary(p.Text)
		}
	}

	out := children[:0]
	for _, child := range children {
		if p, ok := child.(*PlainNode); ok && p.Text == "" {
			continue
		}
		out = append(out, child)
	}
	seq.Children = out
}

// collapseAndMerge removes the newline a comment-only line leaves behind
// between two adjacent plains, then merges every adjacent plain pair.
func collapseAndMerge(children []TextNode) []TextNode {
	var out []TextNode
	for _, child := range children {
		p, ok := child.(*PlainNode)
		if !ok {
			out = append(out, child)
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(*PlainNode); ok {
				if collapsed, did := collapseCommentNewline(prev.Text, p.Text); did {
					prev.Text = collapsed
				}
				prev.Text += p.Text
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// collapseCommentNewline strips the trailing newline (and the comment
// line's indentation after it) from left when right opens with its own
// newline, so the vanished comment line contributes no blank line.
func collapseCommentNewline(left, right string) (string, bool) {
	trimmed := strings.TrimRight(left, " \t")
	if !strings.HasSuffix(trimmed, "\n") {
		return left, false
	}
	rest := strings.TrimLeft(right, " \t")
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return left, false
	}
	trimmed = trimmed[:len(trimmed)-1]
	trimmed = strings.TrimSuffix(trimmed, "\r")
	return trimmed, true
}

// stripIndent removes up to depth*4 columns of leading whitespace from
// every line that starts inside the text; a tab counts as 4 columns.
// Whitespace beyond the budget is content and stays.
func stripIndent(s string, depth int) string {
	if depth <= 0 || !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		b.WriteByte(c)
		i++
		if c != '\n' {
			continue
		}
		budget := depth * 4
		for i < len(s) && budget > 0 {
			if s[i] == ' ' {
				budget--
				i++
			} else if s[i] == '\t' {
				budget -= 4
				i++
			} else {
				break
			}
		}
	}
	return b.String()
}

// trimLeadBoundary drops a blank first line, or failing that the separator
// whitespace after the opening brace.
func trimLeadBoundary(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i < len(s) && s[i] == '\n' {
		return s[i+1:]
	}
	if i+1 < len(s) && s[i] == '\r' && s[i+1] == '\n' {
		return s[i+2:]
	}
	return s[i:]
}

// trimTrailBoundary drops a blank last line: trailing indentation before
// the closing brace, then the newline that preceded it.
func trimTrailBoundary(s string) string {
	s = strings.TrimRight(s, " \t")
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
		s = strings.TrimSuffix(s, "\r")
	}
	return s
}
