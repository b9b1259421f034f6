package sessions

import "time"

// Session is an admin login. It expires after a period without activity.
type Session struct {
	ID         string    `bson:"_id" json:"id"`
	Sub        string    `bson:"sub" json:"sub"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	LastSeenAt time.Time `bson:"lastSeenAt" json:"lastSeenAt"`
	ExpiresAt  time.Time `bson:"expiresAt" json:"expiresAt"`
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
