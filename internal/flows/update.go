package flows

import (
	"time"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// UserRecord is the flow-local user model assembled from backend payloads.
type UserRecord struct {
	ID          int64
	Email       string
	Nicename    string
	DisplayName string
	AvatarURL   string
	Membership  *MembershipRecord
}

// MembershipRecord is the flow-local membership snapshot.
type MembershipRecord struct {
	Tier      string
	Status    string
	ExpiresAt time.Time
}

// QRRecord is the flow-local member QR artifact.
type QRRecord struct {
	Token     string
	Payload   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionUpdate is what a successful network login strategy yields. The
// orchestrator applies it atomically.
type SessionUpdate struct {
	Token     string
	TokenMeta token.Metadata
	User      UserRecord
	QR        *QRRecord
	Identity  string
}

// updateFromPayload maps a login payload onto a SessionUpdate. Token expiry
// comes from the session-supplied expires_in when present, otherwise from the
// token's own claims; with neither, the metadata stays zero and downstream
// expiry resolution reports the gap.
func updateFromPayload(payload *wpapi.LoginPayload, identity string, now time.Time) *SessionUpdate {
	update := &SessionUpdate{
		Token:    payload.Token,
		Identity: identity,
		User: UserRecord{
			ID:          payload.UserID,
			Email:       payload.UserEmail,
			Nicename:    payload.UserNicename,
			DisplayName: payload.UserDisplayName,
			AvatarURL:   payload.AvatarURL,
		},
	}
	if identity == "" {
		update.Identity = payload.UserEmail
	}

	if payload.ExpiresIn > 0 {
		update.TokenMeta = token.Metadata{
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Duration(payload.ExpiresIn) * time.Second),
		}
	} else if decoded, err := token.Decode(payload.Token); err == nil {
		update.TokenMeta = decoded
	}

	if m := payload.Membership; m != nil {
		record := &MembershipRecord{Tier: m.Tier, Status: m.Status}
		if m.ExpiresAt > 0 {
			record.ExpiresAt = time.Unix(m.ExpiresAt, 0)
		}
		update.User.Membership = record
	}

	if qr := payload.MemberQR; qr != nil && qr.Token != "" {
		record := &QRRecord{Token: qr.Token, Payload: qr.Payload}
		if qr.IssuedAt > 0 {
			record.IssuedAt = time.Unix(qr.IssuedAt, 0)
		}
		if qr.ExpiresAt > 0 {
			record.ExpiresAt = time.Unix(qr.ExpiresAt, 0)
		}
		update.QR = record
	}

	return update
}
