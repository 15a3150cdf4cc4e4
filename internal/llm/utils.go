package llm

// ImageDataURL wraps a base64 PNG for an image_url message part.
func ImageDataURL(b64 string) string {
	return "data:image/png;base64," + b64
}

// UserContent builds the user message content for a document: a plain string for
// text, or a text part plus an image part for a rendered page.
func UserContent(doc Document, instruction string, maxChars int) any {
	if !doc.IsImage() {
		return instruction + "\n\n" + BuildDocumentUserText(doc, maxChars)
	}
	text := instruction
	if doc.FileName != "" {
		text += "\nDateiname: " + doc.FileName
	}
	return []map[string]any{
		{"type": "text", "text": text},
		{"type": "image_url", "image_url": map[string]any{"url": ImageDataURL(doc.ImageBase64)}},
	}
}
