package referral

import "regexp"

// codePattern matches the exact invitation wrapper, e.g.
// "(Referral code: _ABCD-ABCDEF_)": a 4-letter campaign token and a
// 6-letter referral token, both uppercase.
var codePattern = regexp.MustCompile(`\(Referral code:\s*_([A-Z]{4})-([A-Z]{6})_\)`)

// ExtractCodes pulls the campaign and referral tokens out of free text.
// Returns empty strings when the wrapper is absent; first match wins.
func ExtractCodes(message string) (campaignCode, referralCode string) {
	match := codePattern.FindStringSubmatch(message)
	if match == nil {
		return "", ""
	}
	return match[1], match[2]
}
