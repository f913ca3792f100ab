package domain

import (
	"time"

	"github.com/google/uuid"
)

// QRPayload is the contract handed to the external QR renderer. The
// core only guarantees the payload shape; image encoding is cosmetic.
type QRPayload struct {
	PassCode   string     `json:"pass_code"`
	ID         uuid.UUID  `json:"id"`
	ValidUntil *time.Time `json:"valid_until"`
	EntryTime  *time.Time `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time"`
}

func NewQRPayload(p *Pass) QRPayload {
	return QRPayload{
		PassCode:   p.PassCode,
		ID:         p.ID,
		ValidUntil: p.ValidUntil,
		EntryTime:  p.EntryTime,
		ExitTime:   p.ExitTime,
	}
}
