package detector

import (
	"strings"

	"github.com/fakelens/fakelens/internal/profile"
)

// Explanation rule thresholds.
const (
	explainDigitCount   = 4
	explainShortBio     = 20
	explainYoungAccount = 30
	explainRatioHigh    = 5.0
	explainRatioLow     = 0.1
)

// suspiciousPhrases flag promotional/spam bios via case-insensitive
// substring match.
var suspiciousPhrases = []string{
	"follow back",
	"follow4follow",
	"dm for collab",
}

// Explain evaluates the fixed-order rule list against the extracted
// features and raw bio. Each rule contributes at most one reason; a profile
// that trips nothing returns an empty (non-nil) slice, which is a valid
// low-information outcome rather than evidence the account is genuine.
func Explain(f profile.Features, bio string) []string {
	reasons := []string{}

	if f[profile.FeatUsernameDigits] >= explainDigitCount {
		reasons = append(reasons, "Username contains many digits")
	}

	if f[profile.FeatBioLength] < explainShortBio {
		reasons = append(reasons, "Bio is very short or empty")
	}

	if f[profile.FeatProfilePic] == 0 {
		reasons = append(reasons, "No profile picture")
	}

	if f[profile.FeatAccountAgeDays] < explainYoungAccount {
		reasons = append(reasons, "Recently created account")
	}

	if following := f[profile.FeatFollowing]; following > 0 {
		ratio := f[profile.FeatFollowers] / following
		if ratio > explainRatioHigh || ratio < explainRatioLow {
			reasons = append(reasons, "Unusual follower-to-following ratio")
		}
	}

	lowerBio := strings.ToLower(bio)
	for _, phrase := range suspiciousPhrases {
		if strings.Contains(lowerBio, phrase) {
			reasons = append(reasons, "Bio contains suspicious keywords")
			break
		}
	}

	return reasons
}
