package chat

import (
	"bytes"
	"os"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

const highlightStyle = "dracula"

// highlightPreview colors an approval preview. The tool type picks the
// lexer: bash tools get shell highlighting, file edits are guessed from
// the content.
func highlightPreview(preview, toolType string) string {
	if preview == "" || colorDisabled() {
		return preview
	}
	var lexer chroma.Lexer
	switch toolType {
	case "bash", "shell", "command":
		lexer = lexers.Get("bash")
	default:
		lexer = lexers.Analyse(preview)
	}
	return renderTokens(preview, lexer)
}

// highlightFences colors fenced code blocks inside message bodies and
// leaves everything else untouched.
func highlightFences(body string) string {
	if colorDisabled() || !strings.Contains(body, "```") {
		return body
	}

	var out []string
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) {
		open := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(open, "```") {
			out = append(out, lines[i])
			i++
			continue
		}
		closing := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				closing = j
				break
			}
		}
		if closing < 0 {
			out = append(out, lines[i])
			i++
			continue
		}
		lang := strings.TrimPrefix(open, "```")
		code := strings.Join(lines[i+1:closing], "\n")
		out = append(out, lines[i], renderTokens(code, lexers.Get(lang)), lines[closing])
		i = closing + 1
	}
	return strings.Join(out, "\n")
}

func renderTokens(code string, lexer chroma.Lexer) string {
	if code == "" {
		return code
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func colorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}
