// Package puzzle implements the proof-of-work challenge: find a proof string
// such that sha256(seed + proof) starts with a required number of hex zeros.
package puzzle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
)

// DefaultZeros is the required leading hex zeros when no difficulty is given.
const DefaultZeros = 3

const seedBytes = 16

// ErrInvalidParams is returned when stored puzzle params cannot be decoded.
var ErrInvalidParams = errors.New("puzzle: invalid params")

// Params is the public, client-safe puzzle description. The seed is the puzzle;
// there is no server-side secret.
type Params struct {
	Seed  string `json:"seed"`
	Zeros int    `json:"zeros"`
}

// legacyParams covers the two historical stored shapes: flat
// {"serverNonce","zeros"} and nested {"publicParams":{"serverNonce","zeros"}}.
type legacyParams struct {
	Seed         string        `json:"seed"`
	ServerNonce  string        `json:"serverNonce"`
	Zeros        int           `json:"zeros"`
	PublicParams *legacyParams `json:"publicParams"`
}

// DecodeParams normalizes raw stored params into Params, accepting the current
// shape and both legacy shapes. Normalization happens only here, never at call sites.
func DecodeParams(raw []byte) (Params, error) {
	var lp legacyParams
	if err := json.Unmarshal(raw, &lp); err != nil {
		return Params{}, ErrInvalidParams
	}
	if lp.PublicParams != nil {
		lp = *lp.PublicParams
	}
	p := Params{Seed: lp.Seed, Zeros: lp.Zeros}
	if p.Seed == "" {
		p.Seed = lp.ServerNonce
	}
	if p.Seed == "" || p.Zeros < 1 {
		return Params{}, ErrInvalidParams
	}
	return p, nil
}

// ZerosForDifficulty maps a difficulty string to a leading-zero count:
// easy=2, medium=3, hard=4. Positive numeric strings pass through. Anything
// else maps to fallback, or DefaultZeros when fallback is not positive.
func ZerosForDifficulty(difficulty string, fallback int) int {
	if fallback < 1 {
		fallback = DefaultZeros
	}
	switch strings.TrimSpace(strings.ToLower(difficulty)) {
	case "":
		return fallback
	case "easy":
		return 2
	case "medium":
		return 3
	case "hard":
		return 4
	}
	if n, err := strconv.Atoi(strings.TrimSpace(difficulty)); err == nil && n > 0 {
		return n
	}
	return fallback
}

// Engine generates and verifies proof-of-work puzzles.
type Engine struct {
	defaultZeros int
}

// NewEngine returns an Engine that uses defaultZeros for unrecognized difficulties.
func NewEngine(defaultZeros int) *Engine {
	if defaultZeros < 1 {
		defaultZeros = DefaultZeros
	}
	return &Engine{defaultZeros: defaultZeros}
}

// Generate produces a fresh puzzle for the given difficulty. The seed is 16
// random bytes hex-encoded, so puzzles are never replayable across sessions.
func (e *Engine) Generate(difficulty string) (Params, error) {
	seed, err := security.RandomHex(seedBytes)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Seed:  seed,
		Zeros: ZerosForDifficulty(difficulty, e.defaultZeros),
	}, nil
}

// Verify reports whether proof satisfies params: sha256(seed + proof) in hex
// must start with at least params.Zeros '0' characters. A malformed or empty
// proof verifies false; Verify never panics and never returns an error.
func (e *Engine) Verify(params Params, proof string) bool {
	if params.Seed == "" || params.Zeros < 1 || proof == "" {
		return false
	}
	sum := sha256.Sum256([]byte(params.Seed + proof))
	digest := hex.EncodeToString(sum[:])
	return strings.HasPrefix(digest, strings.Repeat("0", params.Zeros))
}
