package fiscal

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// QRType is the shape of a scanned receipt code
type QRType int

const (
	QRUnknown QRType = iota
	QRAccessKey
	QRAuthorityURL
	QRSatCoupon
)

func (t QRType) String() string {
	switch t {
	case QRAccessKey:
		return "access_key"
	case QRAuthorityURL:
		return "authority_url"
	case QRSatCoupon:
		return "sat_coupon"
	default:
		return "unknown"
	}
}

// MarshalText lets QRType appear by name in JSON
func (t QRType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText reads the name written by MarshalText. Unknown names read as
// QRUnknown.
func (t *QRType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "access_key":
		*t = QRAccessKey
	case "authority_url":
		*t = QRAuthorityURL
	case "sat_coupon":
		*t = QRSatCoupon
	default:
		*t = QRUnknown
	}
	return nil
}

// AccessKeyLength is the number of digits in an NF-e/NFC-e access key
const AccessKeyLength = 44

var (
	authorityURLPattern = regexp.MustCompile(`(?i)^https?://[a-z0-9.-]*(fazenda|sefaz|nfce|nfe)[a-z0-9.-]*\.gov\.br(?:[/?:#]|$)`)
	satCouponPattern    = regexp.MustCompile(`^\d{6}\|\d{14}\|\d{14}\|`)
	accessKeyRun        = regexp.MustCompile(`\d{44}`)
)

// Classify decides which lookup a scanned text needs. The first matching
// rule wins:
//
//  1. no letters and exactly 44 digits once separators are dropped
//  2. a fiscal authority URL (sefaz/fazenda/nfce/nfe host under .gov.br)
//  3. a CF-e SAT coupon (######|##############|##############|...)
//  4. any text carrying a chNFe= query parameter
func Classify(text string) QRType {
	text = strings.TrimSpace(text)
	if text == "" {
		return QRUnknown
	}
	if _, ok := ExtractAccessKey(text); ok {
		return QRAccessKey
	}
	if authorityURLPattern.MatchString(text) {
		return QRAuthorityURL
	}
	if satCouponPattern.MatchString(text) {
		return QRSatCoupon
	}
	if strings.Contains(strings.ToLower(text), "chnfe=") {
		return QRAuthorityURL
	}
	return QRUnknown
}

// ExtractAccessKey returns the 44 digits of text when text is an access key
// written with optional separators
func ExtractAccessKey(text string) (string, bool) {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) {
			return "", false
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != AccessKeyLength {
		return "", false
	}
	return b.String(), true
}

// ExtractAccessKeyFromURL looks for an embedded access key in the chNFe or p
// query parameters of a fiscal authority URL. NFC-e codes carry the key as
// the first field of p=<key>|<version>|<env>|...
func ExtractAccessKeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	query := u.Query()
	for _, name := range []string{"chNFe", "chnfe", "p"} {
		for _, v := range query[name] {
			if key := accessKeyRun.FindString(v); key != "" {
				return key, true
			}
		}
	}
	return "", false
}
