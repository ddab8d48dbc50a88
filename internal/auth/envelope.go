package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const envelopeTagSize = 16

var errTruncated = errors.New("truncated envelope")

// cursor reads the envelope front to back and refuses to read past the
// end of the buffer, whatever the declared lengths say.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", errTruncated, n, c.off, c.remaining())
	}
	out := c.buf[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *cursor) uint8() (int, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

func (c *cursor) uint16LE() (int, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

func (c *cursor) uint32LE() (int, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b)
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: ciphertext length %d", errTruncated, v)
	}
	return int(v), nil
}

func (c *cursor) rest() []byte {
	out := c.buf[c.off:]
	c.off = len(c.buf)
	return out
}

type envelope struct {
	iv         []byte
	aad        []byte
	ciphertext []byte
	tag        []byte
}

// parseEnvelope splits the packet:
//
//	ivLen(1) iv aadLen(2 LE) aad ctLen(4 LE) ciphertext tag(16)
func parseEnvelope(packet []byte) (envelope, error) {
	c := &cursor{buf: packet}
	var env envelope

	ivLen, err := c.uint8()
	if err != nil {
		return env, err
	}
	if ivLen == 0 {
		return env, errors.New("empty iv")
	}
	if env.iv, err = c.take(ivLen); err != nil {
		return env, err
	}
	aadLen, err := c.uint16LE()
	if err != nil {
		return env, err
	}
	if env.aad, err = c.take(aadLen); err != nil {
		return env, err
	}
	ctLen, err := c.uint32LE()
	if err != nil {
		return env, err
	}
	if env.ciphertext, err = c.take(ctLen); err != nil {
		return env, err
	}
	env.tag = c.rest()
	if len(env.tag) != envelopeTagSize {
		return env, fmt.Errorf("invalid auth tag length %d", len(env.tag))
	}
	return env, nil
}

func envelopeKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func newEnvelopeAEAD(secret string, ivLen int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(envelopeKey(secret))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivLen)
}

// openEnvelope decodes, authenticates and parses an encrypted context. A
// structurally bad packet is a *DecodeError; a failed tag check is ErrAuthTag.
func openEnvelope(raw, secret string) (Claims, error) {
	packet, err := decodeBase64Loose(raw)
	if err != nil || len(packet) == 0 {
		return nil, &DecodeError{Strategy: StrategyEnvelope, Err: errors.New("not base64")}
	}
	env, err := parseEnvelope(packet)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyEnvelope, Err: err}
	}
	aead, err := newEnvelopeAEAD(secret, len(env.iv))
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyEnvelope, Err: err}
	}
	sealed := make([]byte, 0, len(env.ciphertext)+len(env.tag))
	sealed = append(sealed, env.ciphertext...)
	sealed = append(sealed, env.tag...)
	plain, err := aead.Open(nil, env.iv, sealed, env.aad)
	if err != nil {
		return nil, ErrAuthTag
	}
	claims, err := parseObject(plain)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyEnvelope, Err: err}
	}
	return claims, nil
}

// Seal encrypts claims into the envelope format Decode accepts. The host
// platform produces these in production; Seal exists for tooling and tests.
func Seal(secret string, iv, aad []byte, claims Claims) (string, error) {
	if len(iv) == 0 || len(iv) > math.MaxUint8 {
		return "", fmt.Errorf("iv length %d out of range", len(iv))
	}
	if len(aad) > math.MaxUint16 {
		return "", fmt.Errorf("aad length %d out of range", len(aad))
	}
	plain, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	aead, err := newEnvelopeAEAD(secret, len(iv))
	if err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, iv, plain, aad)
	ct, tag := sealed[:len(sealed)-aead.Overhead()], sealed[len(sealed)-aead.Overhead():]

	packet := make([]byte, 0, 1+len(iv)+2+len(aad)+4+len(sealed))
	packet = append(packet, byte(len(iv)))
	packet = append(packet, iv...)
	packet = binary.LittleEndian.AppendUint16(packet, uint16(len(aad)))
	packet = append(packet, aad...)
	packet = binary.LittleEndian.AppendUint32(packet, uint32(len(ct)))
	packet = append(packet, ct...)
	packet = append(packet, tag...)
	return base64.StdEncoding.EncodeToString(packet), nil
}
