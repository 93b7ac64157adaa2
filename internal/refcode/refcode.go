package refcode

import (
	"strings"

	"github.com/speps/go-hashids/v2"
)

// Encoder turns serial product IDs into short opaque reference codes for
// public listings, so internal IDs are not guessable from the storefront.
type Encoder struct {
	h *hashids.HashID
}

func New(salt string) (*Encoder, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 8
	data.Alphabet = "abcdefghijkmnpqrstuvwxyz23456789"

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &Encoder{h: h}, nil
}

func (e *Encoder) Encode(id int64) (string, error) {
	code, err := e.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

func (e *Encoder) Decode(code string) (int64, error) {
	ids, err := e.h.DecodeInt64WithError(strings.ToLower(code))
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}
