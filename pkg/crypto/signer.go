package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signer produces hex HMAC-SHA256 signatures for outbound notification events
// so consumers can check an event came from this service.
type Signer struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewSigner(secretKey string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(data []byte, signature string) (bool, error) {
	expectedSignature := s.Sign(data)

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		s.logger.Warn("Signature verification failed",
			slog.Int("payload_bytes", len(data)))
		return false, ErrInvalidSignature
	}

	return true, nil
}

// SignEvent binds the signature to the event id as well as the payload, so a
// body replayed under another id fails verification.
func (s *Signer) SignEvent(eventID string, payload []byte) string {
	return s.Sign(eventData(eventID, payload))
}

func (s *Signer) VerifyEvent(eventID string, payload []byte, signature string) (bool, error) {
	return s.Verify(eventData(eventID, payload), signature)
}

func eventData(eventID string, payload []byte) []byte {
	data := make([]byte, 0, len(eventID)+1+len(payload))
	data = append(data, eventID...)
	data = append(data, ':')
	return append(data, payload...)
}
