package recognition

import (
	"fmt"
	"strings"
)

// transcribePrompt is the shared prompt used by all LLM providers. The
// reply is fed to the regex extractor, so the model must not summarize.
const transcribePrompt = `You are reading a scanned Chinese VAT invoice (增值税发票) or a similar invoice.
Transcribe ALL text visible in the image exactly as printed, line by line, top to bottom.

Important:
- Keep labels and their values on the same line, e.g. "发票号码：12345678" or "购买方：某某公司".
- Keep full-width punctuation such as "：" and currency symbols such as "¥" as printed.
- Keep digits exactly; do not add or remove thousands separators.
- Do not translate, summarize, explain or reformat as JSON or tables.
- Do not use markdown code blocks.
- If there is no readable text, reply with nothing.`

// cleanText normalizes an engine reply: strips markdown fences, unifies line
// endings and trims blank space. An empty result is ErrNoText.
func cleanText(text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl != -1 {
			text = text[nl+1:]
		} else {
			text = strings.TrimLeft(text, "`")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line != "" {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")

	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// dataURL encodes PNG bytes for APIs that take images inline.
func dataURL(pngBase64 string) string {
	return fmt.Sprintf("data:image/png;base64,%s", pngBase64)
}
