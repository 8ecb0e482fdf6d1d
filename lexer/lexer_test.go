package lexer_test

import (
	"testing"

	"github.com/corewald/tera/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []lexer.Token) []lexer.TokenType {
	out := make([]lexer.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeVariable(t *testing.T) {
	toks, err := lexer.New().Tokenize("hi {{ name }}!")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.TokenText, lexer.TokenVariableStart, lexer.TokenName, lexer.TokenVariableEnd, lexer.TokenText, lexer.TokenEOF,
	}, tokenTypes(toks))
}

func TestTokenizeWhitespaceControl(t *testing.T) {
	toks, err := lexer.New().Tokenize("  {%- if true -%} x {%- endif -%}  ")
	require.NoError(t, err)
	require.True(t, len(toks) > 2)
	assert.True(t, toks[1].TrimLeft, "block-start trim flag")
}

func TestTokenizeRawIsVerbatim(t *testing.T) {
	toks, err := lexer.New().Tokenize("{% raw %}{{ not an expr }}{% endraw %}")
	require.NoError(t, err)
	var texts []string
	for _, tok := range toks {
		if tok.Type == lexer.TokenText {
			texts = append(texts, tok.Value)
		}
	}
	assert.Contains(t, texts, "{{ not an expr }}")
}

func TestTokenizeMalformedNumber(t *testing.T) {
	_, err := lexer.New().Tokenize("{{ 1.2.3 }}")
	require.Error(t, err)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := lexer.New().Tokenize(`{{ "abc }}`)
	require.Error(t, err)
}

func TestTokenizeComment(t *testing.T) {
	toks, err := lexer.New().Tokenize("a{# hidden -#} b")
	require.NoError(t, err)
	var found bool
	for _, tok := range toks {
		if tok.Type == lexer.TokenCommentText {
			found = true
			assert.Equal(t, " hidden ", tok.Value)
			assert.True(t, tok.TrimRight)
		}
	}
	assert.True(t, found)
}
