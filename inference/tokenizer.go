package inference

import (
	"fmt"
	"path/filepath"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer encodes text into fixed-length id and attention-mask rows.
type Tokenizer struct {
	tk     *tokenizer.Tokenizer
	maxLen int
	padID  int
}

// LoadTokenizer reads tokenizer.json from a Hugging Face model directory.
func LoadTokenizer(dir string, maxLen int) (*Tokenizer, error) {
	tk, err := pretrained.FromFile(filepath.Join(dir, TokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("tokenizer %s: %w", dir, err)
	}
	pad := 0
	for _, tok := range []string{"[PAD]", "<pad>"} {
		if id, ok := tk.TokenToId(tok); ok {
			pad = id
			break
		}
	}
	return &Tokenizer{tk: tk, maxLen: maxLen, padID: pad}, nil
}

func (t *Tokenizer) MaxLen() int { return t.maxLen }

func (t *Tokenizer) Encode(text string) (ids, mask []int64, err error) {
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	keepLast := len(enc.SpecialTokenMask) > 0 && enc.SpecialTokenMask[len(enc.SpecialTokenMask)-1] == 1
	ids, mask = Window(enc.Ids, t.maxLen, t.padID, keepLast)
	return ids, mask, nil
}

// Window truncates ids to maxLen, keeping the final token when keepLast is
// set (the closing special token), then right-pads with padID. The mask is 1
// for real tokens and 0 for padding.
func Window(in []int, maxLen, padID int, keepLast bool) (ids, mask []int64) {
	ids = make([]int64, maxLen)
	mask = make([]int64, maxLen)
	n := len(in)
	if n > maxLen {
		n = maxLen
	}
	for i := 0; i < n; i++ {
		ids[i] = int64(in[i])
		mask[i] = 1
	}
	if len(in) > maxLen && keepLast && maxLen > 0 {
		ids[maxLen-1] = int64(in[len(in)-1])
	}
	for i := n; i < maxLen; i++ {
		ids[i] = int64(padID)
	}
	return ids, mask
}
