package checkin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TokenType is the exact type tag required in every QR payload.
const TokenType = "BOOKING_CHECKIN"

var (
	ErrBadToken     = errors.New("malformed check-in token")
	ErrBadSignature = errors.New("check-in token signature mismatch")
	ErrTokenExpired = errors.New("check-in token expired")
)

// Token is the QR wire format. The timestamp is epoch milliseconds and the
// signature is an HMAC-SHA256 over "bookingId|timestamp", so a forged or
// replayed timestamp is rejected before it is trusted.
type Token struct {
	Type      string `json:"type"`
	BookingID string `json:"bookingId"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"sig"`
}

func sign(secret, bookingID string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d", bookingID, timestamp)
	return hex.EncodeToString(mac.Sum(nil))
}

// IssueToken produces the QR payload for a booking at the given instant.
func IssueToken(secret string, bookingID int, now time.Time) (string, error) {
	id := strconv.Itoa(bookingID)
	timestamp := now.UnixMilli()

	data, err := json.Marshal(Token{
		Type:      TokenType,
		BookingID: id,
		Timestamp: timestamp,
		Signature: sign(secret, id, timestamp),
	})
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ParseToken validates the payload shape, signature and age, in that order,
// and returns the booking ID it refers to.
func ParseToken(secret, qrData string, now time.Time, maxAge time.Duration) (int, error) {
	var token Token
	if err := json.Unmarshal([]byte(qrData), &token); err != nil {
		return 0, ErrBadToken
	}

	if token.Type != TokenType {
		return 0, ErrBadToken
	}

	bookingID, err := strconv.Atoi(token.BookingID)
	if err != nil || bookingID <= 0 {
		return 0, ErrBadToken
	}

	expected := sign(secret, token.BookingID, token.Timestamp)
	if !hmac.Equal([]byte(expected), []byte(token.Signature)) {
		return 0, ErrBadSignature
	}

	issuedAt := time.UnixMilli(token.Timestamp)
	if now.Sub(issuedAt) > maxAge {
		return 0, ErrTokenExpired
	}

	return bookingID, nil
}
