package rag

// ChunkText splits text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. The last window is the first
// one that reaches the end of the text.
//
// Empty text yields no chunks. A chunkSize <= 0 yields the whole text as one chunk.
// If overlap leaves no forward progress, windows advance by chunkSize instead.
func ChunkText(text string, chunkSize, overlap int) []string {
	if text == "" {
		return []string{}
	}
	if chunkSize <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
