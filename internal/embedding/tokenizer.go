package embedding

import (
	"hash/fnv"
	"strings"
)

// T5 special token ids.
const (
	T5PadTokenID = 0
	T5EOSTokenID = 1
	T5UnkTokenID = 2
	// DefaultMaxTokens is the sequence length the T5 encoder is run with.
	DefaultMaxTokens = 256

	t5VocabSize = 32100
)

// Tokenizer produces token ids and an attention mask padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64)
}

// HashTokenizer is a whitespace tokenizer that maps words into the T5 vocabulary range by hash.
// It keeps T5's framing (EOS after the last token, PAD after that) so an exported T5 encoder
// accepts its output; it is not a SentencePiece replacement.
type HashTokenizer struct{}

// Tokenize splits text into words and produces ids of length maxTokens: up to maxTokens-1 word
// ids, then EOS, then PAD. The attention mask is 1 for word ids and EOS.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64) {
	if maxTokens <= 1 {
		maxTokens = DefaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)

	pos := 0
	for _, word := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(3 + HashString(word)%(t5VocabSize-3))
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = T5EOSTokenID
	attentionMask[pos] = 1
	return inputIDs, attentionMask
}

// SplitWords splits text on whitespace and returns non-empty words, or nil for blank text.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic 64-bit FNV-1a hash of s.
func HashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
