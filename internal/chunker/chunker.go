package chunker

import (
	"strings"

	"tcm-rag/internal/models"
)

const defaultChunkSize = 256

// Splitter packs whole sentences into chunks of at most chunkSize runes.
// Rune count, not byte count: the corpus is mostly Chinese.
type Splitter struct {
	chunkSize int
}

func New(chunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Splitter{chunkSize: chunkSize}
}

// Split breaks a document's text into chunks, preferring sentence
// boundaries. A single sentence longer than the chunk size is hard-split
// at the rune bound.
func (s *Splitter) Split(text, source string) []models.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.Chunk
	var cur strings.Builder
	curLen := 0
	pos := 0

	flush := func() {
		if curLen == 0 {
			return
		}
		chunks = append(chunks, models.Chunk{
			Content:  cur.String(),
			Source:   source,
			Position: pos,
		})
		pos++
		cur.Reset()
		curLen = 0
	}

	for _, sent := range sentences {
		n := len([]rune(sent))
		if n > s.chunkSize {
			flush()
			for _, part := range hardSplit(sent, s.chunkSize) {
				chunks = append(chunks, models.Chunk{
					Content:  part,
					Source:   source,
					Position: pos,
				})
				pos++
			}
			continue
		}
		if curLen+n > s.chunkSize {
			flush()
		}
		cur.WriteString(sent)
		curLen += n
	}
	flush()

	return chunks
}

// sentence terminators, CJK and ASCII
func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '…', '；', '!', '?', '.', ';', '\n':
		return true
	}
	return false
}

func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if isTerminator(r) {
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func hardSplit(sentence string, size int) []string {
	runes := []rune(sentence)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
