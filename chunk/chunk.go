// Package chunk splits documents into bounded-size segments for embedding.
package chunk

// DefaultSize is the target chunk length, in characters, used by ingestion.
const DefaultSize = 2000

// Split breaks text into consecutive chunks of at most maxSize characters.
//
// When a chunk would end before the end of the text, Split looks backward from
// the proposed end for a newline. A newline found after the chunk start ends
// the chunk just before it, so the newline opens the next chunk. Without one
// the chunk is cut at exactly maxSize. Concatenating the result always yields
// the input text.
//
// Lengths are counted in runes. A non-positive maxSize selects DefaultSize.
// Empty text produces no chunks.
func Split(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultSize
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + maxSize
		if end < len(runes) {
			if nl := lastNewline(runes, start, end); nl > start {
				end = nl
			}
		} else {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}

// lastNewline returns the index of the last '\n' in runes[start:end+1],
// or -1. The position at end itself is included.
func lastNewline(runes []rune, start, end int) int {
	for i := end; i >= start; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
