package shorty

import "time"

// Entry is one cached mapping. Entries are stored by value and never
// modified after creation.
type Entry struct {
	URL       string // canonical (lowercased) long URL
	ShortURL  string
	Code      string
	CreatedAt time.Time
}

// Expired reports whether the entry is older than ttl at now.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}
