// Package workflow implements the two-slot sign-off state machine of a note.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hangpark123/zoomnote/internal/rbac"
)

var (
	ErrUnknownSlot          = errors.New("unknown signature slot")
	ErrUnknownSignatureKind = errors.New("unknown signature type")
	ErrNoSignature          = errors.New("signer has no stored signature")
)

type Slot string

const (
	SlotChecker  Slot = "checker"
	SlotReviewer Slot = "reviewer"
)

func ParseSlot(value string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(value))) {
	case SlotChecker:
		return SlotChecker, nil
	case SlotReviewer:
		return SlotReviewer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, value)
	}
}

type SignatureKind string

const (
	KindNone  SignatureKind = "none"
	KindDrawn SignatureKind = "draw"
	KindText  SignatureKind = "text"
)

// ParseSignatureKind accepts none, draw, text and image. An uploaded image
// is stored as a drawn signature.
func ParseSignatureKind(value string) (SignatureKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return KindNone, nil
	case "draw", "image":
		return KindDrawn, nil
	case "text":
		return KindText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSignatureKind, value)
	}
}

// Signature is a stored signature payload. Data is a data URL for drawn
// signatures and plain text for typed ones.
type Signature struct {
	Data string        `json:"data,omitempty"`
	Kind SignatureKind `json:"kind,omitempty"`
}

func (s Signature) Present() bool {
	return s.Data != "" && s.Kind != "" && s.Kind != KindNone
}

// SlotState is one approval slot. The zero value is Unsigned.
type SlotState struct {
	SignerID  string
	Signature Signature
	SignedAt  time.Time
}

func (s SlotState) Signed() bool { return s.SignerID != "" }

func Unsigned() SlotState { return SlotState{} }

// Signed snapshots sig at the moment of signing. Later changes to the
// signer's stored signature do not reach notes that were already signed.
func Signed(signerID string, sig Signature, at time.Time) SlotState {
	return SlotState{SignerID: signerID, Signature: sig, SignedAt: at.UTC()}
}

// Participant is a user taking part in a signing action.
type Participant struct {
	Subject   rbac.Subject
	Signature Signature
}

// Request is a sign or clear action on one slot.
type Request struct {
	Slot  Slot
	Clear bool
	// Delegate is set for proxy signing.
	Delegate *Participant
}

// Transition computes the new state of req.Slot for actor. Clearing resets
// every field of the slot no matter who signed it.
func Transition(actor Participant, req Request, now time.Time) (SlotState, error) {
	if req.Slot != SlotChecker && req.Slot != SlotReviewer {
		return SlotState{}, fmt.Errorf("%w: %q", ErrUnknownSlot, req.Slot)
	}
	if !rbac.CanSign(actor.Subject) {
		return SlotState{}, rbac.ErrForbidden
	}
	if req.Clear {
		return Unsigned(), nil
	}

	signer := actor
	if req.Delegate != nil {
		if !rbac.CanProxySign(actor.Subject, req.Delegate.Subject) {
			return SlotState{}, rbac.ErrForbidden
		}
		signer = *req.Delegate
	}
	if !signer.Signature.Present() {
		return SlotState{}, ErrNoSignature
	}
	return Signed(signer.Subject.UserID, signer.Signature, now), nil
}
