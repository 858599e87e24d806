package llm

import "strings"

// StripCodeFences removes markdown code-fence markers from model output.
// Vision models routinely wrap JSON in ```json fences despite instructions.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
