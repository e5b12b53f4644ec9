package config

// StripComments removes // line comments and /* block */ comments from
// JSONC input, leaving string literals untouched. Comment bytes are
// replaced with spaces (newlines preserved) so parse errors keep their
// original line numbers.
func StripComments(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	const (
		code = iota
		inString
		inLineComment
		inBlockComment
	)

	state := code
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case code:
			switch {
			case c == '"':
				state = inString
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = inLineComment
				out[i] = ' '
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = inBlockComment
				out[i] = ' '
			}
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				state = code
			}
		case inLineComment:
			if c == '\n' {
				state = code
			} else {
				out[i] = ' '
			}
		case inBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = code
			} else if c != '\n' {
				out[i] = ' '
			}
		}
	}

	return out
}
