package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"venue-signals/internal/models"
)

const (
	defaultEmotion   = "neutral"
	defaultLocation  = "no-location"
	defaultTimeOfDay = "any-time"
	defaultOccasion  = "casual"

	digestLen = sha256.Size * 2
)

// Fingerprint is the readable form of the request context parts that change
// a recommendation: emotional state, location, time of day and occasion.
func Fingerprint(rc models.RequestContext) string {
	return strings.Join([]string{
		orDefault(string(rc.EmotionalState), defaultEmotion),
		orDefault(rc.Location, defaultLocation),
		orDefault(rc.TimeOfDay, defaultTimeOfDay),
		orDefault(rc.Occasion, defaultOccasion),
	}, "|")
}

// Key builds prefix:userID:sha256(fingerprint).
func Key(prefix, userID string, rc models.RequestContext) string {
	sum := sha256.Sum256([]byte(Fingerprint(rc)))
	return userPrefix(prefix, userID) + hex.EncodeToString(sum[:])
}

func userPrefix(prefix, userID string) string {
	return prefix + ":" + userID + ":"
}

// ownsKey reports whether key belongs to exactly this user, not to another
// user whose id merely starts with "userID:".
func ownsKey(prefix, userID, key string) bool {
	p := userPrefix(prefix, userID)
	if !strings.HasPrefix(key, p) {
		return false
	}
	rest := key[len(p):]
	if len(rest) != digestLen {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

func orDefault(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}
