package ml

import (
	"fmt"
	"math/rand"

	"github.com/fakelens/fakelens/internal/profile"
)

// Example is one labeled training row: the numeric profile features, the
// bio text fed to the vectorizer, and the class label.
type Example struct {
	Features profile.Features
	Bio      string
	Label    int // 1 = fake, 0 = genuine
}

// Bio phrase pools for the two synthetic distributions.
var (
	fakeBioPhrases = []string{
		"follow back",
		"follow4follow",
		"dm for collab",
		"influencer",
		"model",
		"",
		"entrepreneur",
	}

	genuineBioPhrases = []string{
		"love traveling and photography",
		"software engineer at tech company",
		"passionate about art and music",
		"family first",
		"coffee lover",
		"working towards my dreams",
	}
)

// Synthesizer produces the labeled training corpus used when no persisted
// model exists. The fake and genuine distributions occupy disjoint
// parameter ranges by construction so the classifier can separate them;
// this is a stand-in for real labeled data, not a claim of real-world
// calibration.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer creates a synthesizer with a fixed seed. The same seed
// always yields the same corpus.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces count examples, half fake and half genuine.
// count must be positive and even.
func (s *Synthesizer) Generate(count int) ([]Example, error) {
	if count <= 0 || count%2 != 0 {
		return nil, fmt.Errorf("synthesizer: count must be a positive even number, got %d", count)
	}

	examples := make([]Example, 0, count)
	for i := 0; i < count/2; i++ {
		examples = append(examples, s.fakeExample())
	}
	for i := 0; i < count/2; i++ {
		examples = append(examples, s.genuineExample())
	}
	return examples, nil
}

// fakeExample draws from the fake-account distribution: short randomized
// bios, heavy following with few followers, young accounts, promotional
// bio phrasing.
func (s *Synthesizer) fakeExample() Example {
	var f profile.Features
	f[profile.FeatUsernameLength] = float64(s.intn(5, 15))
	f[profile.FeatUsernameDigits] = float64(s.intn(3, 8))
	f[profile.FeatBioLength] = float64(s.intn(0, 50))
	f[profile.FeatProfilePic] = s.bernoulli(0.3)
	f[profile.FeatFollowers] = float64(s.intn(0, 100))
	f[profile.FeatFollowing] = float64(s.intn(500, 5000))
	f[profile.FeatPosts] = float64(s.intn(0, 20))
	f[profile.FeatAccountAgeDays] = float64(s.intn(1, 90))
	f[profile.FeatVerified] = 0
	f[profile.FeatEngagementRate] = s.uniform(0, 0.02)
	f[profile.FeatPostingFrequency] = s.uniform(5, 50)

	return Example{
		Features: f,
		Bio:      fakeBioPhrases[s.rng.Intn(len(fakeBioPhrases))],
		Label:    1,
	}
}

// genuineExample draws from the genuine-account distribution: longer bios,
// balanced follow ratios, older accounts, personal or professional phrasing.
func (s *Synthesizer) genuineExample() Example {
	var f profile.Features
	f[profile.FeatUsernameLength] = float64(s.intn(6, 20))
	f[profile.FeatUsernameDigits] = float64(s.intn(0, 3))
	f[profile.FeatBioLength] = float64(s.intn(20, 200))
	f[profile.FeatProfilePic] = s.bernoulli(0.9)
	f[profile.FeatFollowers] = float64(s.intn(50, 2000))
	f[profile.FeatFollowing] = float64(s.intn(50, 1000))
	f[profile.FeatPosts] = float64(s.intn(10, 500))
	f[profile.FeatAccountAgeDays] = float64(s.intn(90, 2000))
	f[profile.FeatVerified] = s.bernoulli(0.1)
	f[profile.FeatEngagementRate] = s.uniform(0.01, 0.1)
	f[profile.FeatPostingFrequency] = s.uniform(0.5, 10)

	return Example{
		Features: f,
		Bio:      genuineBioPhrases[s.rng.Intn(len(genuineBioPhrases))],
		Label:    0,
	}
}

// intn draws from the half-open range [lo, hi).
func (s *Synthesizer) intn(lo, hi int) int {
	return lo + s.rng.Intn(hi-lo)
}

func (s *Synthesizer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Synthesizer) bernoulli(p float64) float64 {
	if s.rng.Float64() < p {
		return 1
	}
	return 0
}
