package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"return x;", lineReturn},
		{"const x = 42;", lineDeclaration},
		{"let y = [];", lineDeclaration},
		{"var z;", lineDeclaration},
		{"function f() {", lineDeclaration},
		{"class Widget {", lineDeclaration},
		{"if (ready) {", lineControl},
		{"for (const p of pages) {", lineControl},
		{"while (true) {", lineControl},
		{"throw new Error('no');", lineControl},
		{"}", lineClosingBrace},
		{"} else {", lineClosingBrace},
		{"total = total + 1;", lineAssignment},
		{"obj.field = compute();", lineAssignment},
		{"x;", lineExpression},
		{"compute(1, 2)", lineExpression},
		{"a === b", lineExpression},
		{"items.map(i => i * 2)", lineExpression},
		{"f(x = 1)", lineExpression}, // '=' inside parens is not a statement-level assignment
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyLine(tt.line), "line %q", tt.line)
		})
	}
}

func TestRewriteForCaptureBareExpression(t *testing.T) {
	got := rewriteForCapture("const x = 42;\nx;")
	assert.Equal(t, "const x = 42;\nreturn (x);", got)
}

func TestRewriteForCaptureDeclarationEndingUnchanged(t *testing.T) {
	code := "const x = 42;"
	assert.Equal(t, code, rewriteForCapture(code))
}

func TestRewriteForCaptureIgnoresTrailingComments(t *testing.T) {
	code := "x;\n// done\n/* trailing\n   note */"
	got := rewriteForCapture(code)
	assert.Contains(t, got, "return (x);")
}

func TestRewriteExplicitExportWinsOverHeuristic(t *testing.T) {
	code := "export default 1 + 1;\nunusedExpression;"
	got := prepareBody(code)
	assert.Contains(t, got, "return (1 + 1);")
	// The trailing bare expression must not have been rewritten too.
	assert.Contains(t, got, "unusedExpression;")
	assert.NotContains(t, got, "return (unusedExpression)")
}

func TestRewriteExplicitModuleExports(t *testing.T) {
	got, ok := rewriteExplicitExport("const v = 3;\nmodule.exports = v * 2;")
	assert.True(t, ok)
	assert.Contains(t, got, "return (v * 2);")
}

func TestNestedReturnDoesNotSuppressCapture(t *testing.T) {
	code := "function f() {\n  return 1;\n}\nf();"
	_, ok := rewriteExplicitExport(code)
	assert.False(t, ok, "a return inside a function body is not a block result")
	assert.Contains(t, prepareBody(code), "return (f());")
}

func TestTopLevelReturnStillExplicit(t *testing.T) {
	code := "const x = 2;\nreturn x * 3;"
	got, ok := rewriteExplicitExport(code)
	assert.True(t, ok)
	assert.Equal(t, code, got)
}

func TestNestedExportDefaultIgnored(t *testing.T) {
	code := "const s = `export default fake`;\nif (false) {\n  module.exports = 1;\n}\ns;"
	_, ok := rewriteExplicitExport(code)
	assert.False(t, ok)
	assert.Contains(t, prepareBody(code), "return (s);")
}

func TestTrailingCommentStrippedFromCapturedExpression(t *testing.T) {
	got := rewriteForCapture("const x = 42;\nx; // the answer")
	assert.Equal(t, "const x = 42;\nreturn (x);", got)
}

func TestStripLineCommentHonorsStrings(t *testing.T) {
	assert.Equal(t, `"https://example.com";`, stripLineComment(`"https://example.com";`))
	assert.Equal(t, "x;", stripLineComment("x; // note"))
	assert.Equal(t, "'a // b'", stripLineComment("'a // b'"))
}

func TestCommentedExportDoesNotCount(t *testing.T) {
	code := "// export default oldValue;\nconst x = 1;\nx;"
	_, ok := rewriteExplicitExport(code)
	assert.False(t, ok)
	assert.Contains(t, prepareBody(code), "return (x);")
}
