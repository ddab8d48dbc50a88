// Package auth recovers caller identity claims from the opaque context
// value the host platform attaches to every request.
package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/klauspost/compress/flate"
)

type Strategy string

const (
	StrategyJSON     Strategy = "json"
	StrategyCompact  Strategy = "compact"
	StrategyBase64   Strategy = "base64-json"
	StrategyEnvelope Strategy = "envelope"
	StrategyDeflate  Strategy = "deflate"
)

// ErrAuthTag means an encrypted envelope failed authentication. It is a
// tamper signal; for control flow it counts as "no claims".
var ErrAuthTag = errors.New("context envelope authentication failed")

// DecodeError reports a value that did not fit a decode strategy. Decode
// recovers from these internally and moves on to the next strategy.
type DecodeError struct {
	Strategy Strategy
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Strategy, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const maxInflated = 1 << 20

// Decoder turns a context header value into Claims.
type Decoder struct {
	secret string
	parser *jwt.Parser
}

func NewDecoder(secret string) *Decoder {
	return &Decoder{
		secret: secret,
		parser: jwt.NewParser(jwt.WithPaddingAllowed(), jwt.WithJSONNumber()),
	}
}

// Decode tries, in order: plain JSON, a compact three-segment token, base64
// JSON and the encrypted envelope. It never returns nil Claims; when nothing
// matches the result is empty. The error is non-nil only for ErrAuthTag, in
// which case the claims are empty as well.
//
// A nested "context" field is expanded and merged over the outer object when
// the outer object carries no user id of its own.
func (d *Decoder) Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, nil
	}

	claims, err := d.decodeOuter(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims == nil {
		return Claims{}, nil
	}
	if inner := claims.String("context"); inner != "" && claims.String("uid") == "" && claims.String("userId") == "" {
		if expanded := d.decodeInner(inner); expanded != nil {
			claims = claims.merge(expanded)
		}
	}
	return claims, nil
}

func (d *Decoder) decodeOuter(raw string) (Claims, error) {
	if c, err := decodeJSON(raw); err == nil {
		return c, nil
	}
	if c, err := d.decodeCompact(raw); err == nil {
		return c, nil
	}
	if c, err := decodeBase64JSON(raw); err == nil {
		return c, nil
	}
	if d.secret == "" {
		return nil, nil
	}
	c, err := openEnvelope(raw, d.secret)
	if errors.Is(err, ErrAuthTag) {
		return nil, err
	}
	if err != nil {
		return nil, nil
	}
	return c, nil
}

func (d *Decoder) decodeInner(raw string) Claims {
	if c, err := d.decodeCompact(raw); err == nil {
		return c
	}
	if c, err := decodeBase64JSON(raw); err == nil {
		return c
	}
	if c, err := decodeDeflate(raw); err == nil {
		return c
	}
	return nil
}

func decodeJSON(raw string) (Claims, error) {
	c, err := parseObject([]byte(raw))
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyJSON, Err: err}
	}
	return c, nil
}

// decodeCompact reads the payload of a header.payload.signature token. The
// signature is not verified here. Well-formed tokens go through the jwt
// parser, which keeps numeric ids exact and maps the registered subject to
// the user id; segments in the standard base64 alphabet are read directly.
func (d *Decoder) decodeCompact(raw string) (Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, &DecodeError{Strategy: StrategyCompact, Err: fmt.Errorf("expected 3 segments, got %d", len(parts))}
	}
	mc := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, mc); (err == nil || errors.Is(err, jwt.ErrTokenUnverifiable)) && len(mc) > 0 {
		c := Claims(mc)
		if c.UserID() == "" {
			if sub, err := mc.GetSubject(); err == nil && strings.TrimSpace(sub) != "" {
				c["uid"] = strings.TrimSpace(sub)
			}
		}
		return c, nil
	}
	payload, err := decodeBase64Loose(parts[1])
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyCompact, Err: err}
	}
	c, err := parseObject(payload)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyCompact, Err: err}
	}
	return c, nil
}

func decodeBase64JSON(raw string) (Claims, error) {
	buf, err := decodeBase64Loose(raw)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyBase64, Err: err}
	}
	c, err := parseObject(buf)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyBase64, Err: err}
	}
	return c, nil
}

func decodeDeflate(raw string) (Claims, error) {
	buf, err := decodeBase64Loose(raw)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyDeflate, Err: err}
	}
	r := flate.NewReader(bytes.NewReader(buf))
	defer r.Close()
	plain, err := io.ReadAll(io.LimitReader(r, maxInflated))
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyDeflate, Err: err}
	}
	c, err := parseObject(plain)
	if err != nil {
		return nil, &DecodeError{Strategy: StrategyDeflate, Err: err}
	}
	return c, nil
}

// decodeBase64Loose accepts standard or URL alphabets, padded or not.
func decodeBase64Loose(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty input")
	}
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(s)
}

// parseObject accepts only a JSON object.
func parseObject(data []byte) (Claims, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.New("not a json object")
	}
	var c Claims
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.New("null object")
	}
	return c, nil
}
