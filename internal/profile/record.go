// Package profile defines the social-media profile input record and the
// deterministic feature extraction that feeds the scoring pipeline.
//
// Every field on Record is optional. Missing network and behavioral fields
// are substituted with bounded pseudo-random defaults at extraction time:
// the pipeline must never fail on sparse input, but the defaults carry no
// signal, so callers should supply real values whenever they have them.
package profile

// Record is a raw profile as supplied by the request layer.
// Pointer fields distinguish "absent" from zero values.
type Record struct {
	Username          string   `json:"username"`
	Bio               string   `json:"bio"`
	HasProfilePicture *bool    `json:"profile_picture_present,omitempty"`
	FollowerCount     *int     `json:"follower_count,omitempty"`
	FollowingCount    *int     `json:"following_count,omitempty"`
	PostCount         *int     `json:"post_count,omitempty"`
	AccountAgeDays    *int     `json:"account_age_days,omitempty"`
	Verified          *bool    `json:"verified,omitempty"`
	EngagementRate    *float64 `json:"engagement_rate,omitempty"`
	PostingFrequency  *float64 `json:"posting_frequency,omitempty"`
}

// NumFeatures is the width of the numeric feature vector.
// The order below is fixed and must match the order used at training time.
const NumFeatures = 11

// Feature vector indices.
const (
	FeatUsernameLength = iota
	FeatUsernameDigits
	FeatBioLength
	FeatProfilePic
	FeatFollowers
	FeatFollowing
	FeatPosts
	FeatAccountAgeDays
	FeatVerified
	FeatEngagementRate
	FeatPostingFrequency
)

// featureNames maps vector positions to the names used in API responses
// and training data.
var featureNames = [NumFeatures]string{
	"username_length",
	"username_digits",
	"bio_length",
	"profile_pic",
	"followers",
	"following",
	"posts",
	"account_age_days",
	"verified",
	"engagement_rate",
	"posting_frequency",
}

// Features is the fixed-order numeric feature vector for one profile.
type Features [NumFeatures]float64

// Slice returns the vector as a []float64 in canonical order.
func (f Features) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, f[:])
	return out
}

// Map returns the vector keyed by feature name, for API responses.
func (f Features) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range featureNames {
		out[name] = f[i]
	}
	return out
}

// FeatureNames returns the canonical feature names in vector order.
func FeatureNames() []string {
	out := make([]string, NumFeatures)
	copy(out, featureNames[:])
	return out
}
