package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nsss/nsss/internal/ir"
)

func TestExtractSourceSingleLine(t *testing.T) {
	src := "value = os.system(cmd)\n"
	span := ir.Span{File: "f.py", StartLine: 1, StartCol: 8, EndLine: 1, EndCol: 18}
	assert.Equal(t, "os.system(", ir.ExtractSource(src, span))
}

func TestExtractSourceMultiLine(t *testing.T) {
	src := "call(\n    a,\n    b,\n)\n"
	span := ir.Span{File: "f.py", StartLine: 1, StartCol: 0, EndLine: 4, EndCol: 1}
	assert.Equal(t, "call(\n    a,\n    b,\n)", ir.ExtractSource(src, span))
}

func TestExtractSourceUnknownSpan(t *testing.T) {
	assert.Equal(t, "", ir.ExtractSource("anything", ir.UnknownSpan("f.py")))
}

func TestSpanValid(t *testing.T) {
	assert.False(t, ir.UnknownSpan("f.py").Valid())
	assert.True(t, ir.Span{StartLine: 1}.Valid())
}
