package orders

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/speps/go-hashids/v2"
)

// RefGenerator mints short, non-guessable order references like SP-Q4N7RX2M.
// Hashids keeps them compact and free of ambiguous characters; the salt stops
// anyone from enumerating order volume.
type RefGenerator struct {
	h *hashids.HashID
}

func NewRefGenerator(salt string) (*RefGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("init hashids: %w", err)
	}
	return &RefGenerator{h: h}, nil
}

func (g *RefGenerator) Generate() (string, error) {
	ref, err := g.h.EncodeInt64([]int64{
		time.Now().UnixMilli(),
		rand.Int63n(1 << 20),
	})
	if err != nil {
		return "", fmt.Errorf("encode order ref: %w", err)
	}
	return "SP-" + ref, nil
}
