package profile

import (
	"math/rand"
	"sync"
	"unicode"
)

// Default substitution ranges for absent fields. Integer ranges are
// half-open, matching the synthetic training distributions.
const (
	defaultFollowersMax = 1000
	defaultFollowingMax = 2000
	defaultPostsMax     = 100
	defaultAgeMin       = 1
	defaultAgeMax       = 365
	defaultEngagementMax = 0.1
	defaultPostingMax    = 20.0
)

// Extractor maps a Record to its numeric feature vector and bio text.
// The pseudo-random source for default substitution is owned by the
// extractor and seedable, so tests can pin outputs.
type Extractor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewExtractor creates an extractor whose default-value source is seeded
// with the given seed.
func NewExtractor(seed int64) *Extractor {
	return &Extractor{rng: rand.New(rand.NewSource(seed))}
}

// Extract derives the 11 numeric features and the raw bio text from rec.
// It is total: any record, including the zero value, produces a result.
// Absent optional fields are filled from the extractor's random source,
// so extraction is only deterministic when all optional fields are set.
func (e *Extractor) Extract(rec Record) (Features, string) {
	var f Features

	f[FeatUsernameLength] = float64(len([]rune(rec.Username)))
	f[FeatUsernameDigits] = float64(countDigits(rec.Username))
	f[FeatBioLength] = float64(len([]rune(rec.Bio)))
	if rec.HasProfilePicture != nil && *rec.HasProfilePicture {
		f[FeatProfilePic] = 1
	}

	f[FeatFollowers] = e.intOrDefault(rec.FollowerCount, 0, defaultFollowersMax)
	f[FeatFollowing] = e.intOrDefault(rec.FollowingCount, 0, defaultFollowingMax)
	f[FeatPosts] = e.intOrDefault(rec.PostCount, 0, defaultPostsMax)
	f[FeatAccountAgeDays] = e.intOrDefault(rec.AccountAgeDays, defaultAgeMin, defaultAgeMax)

	if rec.Verified != nil && *rec.Verified {
		f[FeatVerified] = 1
	}

	f[FeatEngagementRate] = e.floatOrDefault(rec.EngagementRate, defaultEngagementMax)
	f[FeatPostingFrequency] = e.floatOrDefault(rec.PostingFrequency, defaultPostingMax)

	return f, rec.Bio
}

func (e *Extractor) intOrDefault(v *int, lo, hi int) float64 {
	if v != nil {
		return float64(*v)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(lo + e.rng.Intn(hi-lo))
}

func (e *Extractor) floatOrDefault(v *float64, max float64) float64 {
	if v != nil {
		return *v
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() * max
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
