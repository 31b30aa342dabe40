package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// TicketPayload is what a ticket's QR code encodes.
type TicketPayload struct {
	UserID     string               `json:"userId"`
	ShowtimeID int64                `json:"showtimeId"`
	Seats      []model.SeatPosition `json:"seats"`
	BookingID  string               `json:"bookingId"`
	Timestamp  time.Time            `json:"timestamp"`
}

const qrSize = 300

// NewBookingReference returns a short unique reference such as
// BK3nJ7kYbWq9xLw2vF5aZc.
func NewBookingReference() string {
	return "BK" + shortuuid.New()
}

// EncodeTicketPayload serializes p as JSON.
func EncodeTicketPayload(p TicketPayload) (string, error) {
	p.Timestamp = p.Timestamp.UTC()
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode ticket payload: %w", err)
	}
	return string(b), nil
}

// DecodeTicketPayload parses a payload produced by EncodeTicketPayload.
func DecodeTicketPayload(s string) (TicketPayload, error) {
	var p TicketPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return TicketPayload{}, fmt.Errorf("decode ticket payload: %w", err)
	}
	return p, nil
}

// TicketQRPNG renders payload as a PNG QR code with the highest error
// correction level.
func TicketQRPNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Highest, qrSize)
}

// TicketQRDataURL renders payload as a data:image/png;base64 URL.
func TicketQRDataURL(payload string) (string, error) {
	png, err := TicketQRPNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
