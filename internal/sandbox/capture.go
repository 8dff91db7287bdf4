package sandbox

import "strings"

// lineKind classifies the final significant line of a block for the
// last-expression capture heuristic.
type lineKind int

const (
	lineReturn lineKind = iota
	lineDeclaration
	lineControl
	lineClosingBrace
	lineAssignment
	lineExpression
)

var declarationKeywords = map[string]struct{}{
	"var": {}, "let": {}, "const": {}, "function": {}, "class": {},
	"async": {}, "import": {},
}

var controlKeywords = map[string]struct{}{
	"if": {}, "else": {}, "for": {}, "while": {}, "do": {}, "switch": {},
	"case": {}, "default": {}, "try": {}, "catch": {}, "finally": {},
	"break": {}, "continue": {}, "throw": {},
}

// classifyLine buckets one trimmed, non-empty, non-comment line. The
// heuristic is deliberately shallow: it inspects this line only, never
// scanning further back.
func classifyLine(line string) lineKind {
	word := firstWord(line)
	switch {
	case word == "return":
		return lineReturn
	case strings.HasPrefix(line, "}"):
		return lineClosingBrace
	}
	if _, ok := declarationKeywords[word]; ok {
		return lineDeclaration
	}
	if _, ok := controlKeywords[word]; ok {
		return lineControl
	}
	if isAssignment(line) {
		return lineAssignment
	}
	return lineExpression
}

func firstWord(line string) string {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$' {
			continue
		}
		return line[:i]
	}
	return line
}

// isAssignment detects a top-level '=' that is not part of a comparison,
// arrow, or compound operator's right side check.
func isAssignment(line string) bool {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth > 0 {
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>+-*/%&|^", rune(line[i-1])) {
				continue
			}
			if i+1 < len(line) && (line[i+1] == '=' || line[i+1] == '>') {
				i++
				continue
			}
			return true
		}
	}
	return false
}

// stripLineComment removes a trailing // comment, honoring string literals
// so a "https://..." URL is never truncated.
func stripLineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// nestingDelta is one line's net bracket depth change, ignoring brackets
// inside string literals.
func nestingDelta(line string) int {
	var quote byte
	d := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '{' || c == '(' || c == '[':
			d++
		case c == '}' || c == ')' || c == ']':
			d--
		}
	}
	return d
}

// significantLines returns the indices of lines that are neither blank nor
// comments, tracking block-comment state across lines.
func significantLines(lines []string) []int {
	var idx []int
	inComment := false
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if inComment {
			if end := strings.Index(t, "*/"); end >= 0 {
				inComment = false
				t = strings.TrimSpace(t[end+2:])
			} else {
				continue
			}
		}
		for strings.HasPrefix(t, "/*") {
			end := strings.Index(t, "*/")
			if end < 0 {
				inComment = true
				t = ""
				break
			}
			t = strings.TrimSpace(t[end+2:])
		}
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// rewriteForCapture applies last-expression capture: when the final
// significant line is a bare expression, it is rewritten into a return so
// its value becomes the block output. Declarations, control flow,
// assignments and closing braces yield no output.
func rewriteForCapture(code string) string {
	lines := strings.Split(code, "\n")
	sig := significantLines(lines)
	if len(sig) == 0 {
		return code
	}
	last := sig[len(sig)-1]
	// A trailing line comment would comment out the wrapper's closing
	// parenthesis, so it is stripped before the expression is wrapped.
	trimmed := strings.TrimSpace(stripLineComment(strings.TrimSpace(lines[last])))
	if classifyLine(trimmed) != lineExpression {
		return code
	}
	expr := strings.TrimSuffix(trimmed, ";")
	lines[last] = "return (" + expr + ");"
	return strings.Join(lines, "\n")
}

// rewriteExplicitExport converts an explicit "export result" statement into
// a return. Only top-level statements count: a return inside a nested
// function body is that function's result, not the block's. An explicit
// export always wins over the last-expression heuristic, so callers must try
// this first.
func rewriteExplicitExport(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	depth := 0
	for _, i := range significantLines(lines) {
		t := strings.TrimSpace(stripLineComment(strings.TrimSpace(lines[i])))
		if depth == 0 {
			switch {
			case strings.HasPrefix(t, "export default "):
				expr := strings.TrimSuffix(strings.TrimPrefix(t, "export default "), ";")
				lines[i] = "return (" + expr + ");"
				return strings.Join(lines, "\n"), true
			case strings.HasPrefix(t, "module.exports"):
				rest := strings.TrimPrefix(t, "module.exports")
				rest = strings.TrimSpace(rest)
				if strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") {
					expr := strings.TrimSuffix(strings.TrimSpace(rest[1:]), ";")
					lines[i] = "return (" + expr + ");"
					return strings.Join(lines, "\n"), true
				}
			case firstWord(t) == "return":
				// A top-level return is already an explicit result.
				return code, true
			}
		}
		depth += nestingDelta(t)
		if depth < 0 {
			depth = 0
		}
	}
	return code, false
}

// prepareBody picks the explicit export over the capture heuristic.
func prepareBody(code string) string {
	if rewritten, ok := rewriteExplicitExport(code); ok {
		return rewritten
	}
	return rewriteForCapture(code)
}
