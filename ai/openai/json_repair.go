package openai

// repairJSON fixes the malformation small local models produce most often:
// object keys missing their opening quote, e.g. `{ semantic_query": ...}`.
// Anything it cannot recognize is passed through untouched.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	i := 0
	for i < len(in) {
		ch := in[i]
		out = append(out, ch)
		i++

		// Keys can only start after an object opener or a separator.
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(in) && isSpace(in[i]) {
			out = append(out, in[i])
			i++
		}

		if i >= len(in) || in[i] == '"' || !isLetter(in[i]) {
			continue
		}

		// Bare word: scan it and check whether `":` follows, which means
		// the opening quote was dropped.
		start := i
		for i < len(in) && (isLetter(in[i]) || in[i] == '_') {
			i++
		}
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			out = append(out, '"')
			out = append(out, in[start:i]...)
			continue
		}

		// Not a broken key, keep what we scanned.
		out = append(out, in[start:i]...)
	}

	return string(out)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
