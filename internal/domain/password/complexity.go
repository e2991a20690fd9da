package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const MinLength = 12

type Strength string

const (
	VeryWeak Strength = "Very Weak"
	Weak     Strength = "Weak"
	Fair     Strength = "Fair"
	Good     Strength = "Good"
	Strong   Strength = "Strong"
)

var strengthOrder = map[Strength]int{VeryWeak: 0, Weak: 1, Fair: 2, Good: 3, Strong: 4}

// AtLeast reports whether s is the same or a stronger bucket than other.
func (s Strength) AtLeast(other Strength) bool {
	return strengthOrder[s] >= strengthOrder[other]
}

const (
	ErrTooShort      = "Password must be at least 12 characters long"
	ErrNoUppercase   = "Password must contain at least one uppercase letter"
	ErrNoLowercase   = "Password must contain at least one lowercase letter"
	ErrNoDigit       = "Password must contain at least one number"
	ErrNoSpecial     = "Password must contain at least one special character"
	ErrCommon        = "Password is too common"
	ErrContainsUser  = "Password must not contain your username"
	ErrDoNotMatch    = "Passwords do not match"
	minUsernameMatch = 3
)

type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Score    int      `json:"score"`
	Strength Strength `json:"strength"`
}

type MatchResult struct {
	Matches bool   `json:"matches"`
	Error   string `json:"error,omitempty"`
}

var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"1234567890",
	"1qaz2wsx3edc",
}

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password1!": {}, "password123": {}, "password123!": {},
	"123456": {}, "12345678": {}, "123456789": {}, "1234567890": {}, "123456789012": {},
	"qwerty": {}, "qwerty123": {}, "qwertyuiop": {}, "qwerty123456": {}, "letmein": {},
	"welcome": {}, "welcome123": {}, "welcome123!": {}, "admin": {}, "admin123": {},
	"iloveyou": {}, "monkey": {}, "dragon": {}, "football": {}, "baseball": {},
	"sunshine": {}, "princess": {}, "trustno1": {}, "abc123": {}, "passw0rd": {},
	"p@ssw0rd": {}, "p@ssword123": {}, "changeme": {}, "changeme123": {}, "firetrack": {},
	"firetrack123": {}, "fireextinguisher": {}, "firesafety": {}, "firesafety123": {},
}

// ValidateComplexity scores a candidate password. It is pure and
// deterministic; username may be empty.
func ValidateComplexity(pw, username string) Result {
	var (
		errs                                     []string
		score                                    int
		hasUpper, hasLower, hasDigit, hasSpecial bool
	)

	length := utf8.RuneCountInString(pw)
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsSpace(r):
			hasSpecial = true
		}
	}

	if length < MinLength {
		errs = append(errs, ErrTooShort)
	} else {
		score += 20
		if length >= 16 {
			score += 5
		}
		if length >= 20 {
			score += 5
		}
	}

	if hasUpper {
		score += 10
	} else {
		errs = append(errs, ErrNoUppercase)
	}
	if hasLower {
		score += 10
	} else {
		errs = append(errs, ErrNoLowercase)
	}
	if hasDigit {
		score += 10
	} else {
		errs = append(errs, ErrNoDigit)
	}
	if hasSpecial {
		score += 10
	} else {
		errs = append(errs, ErrNoSpecial)
	}

	lower := strings.ToLower(pw)
	if pw != "" && !hasRepeatedRun(lower, 3) {
		score += 6
	}
	if pw != "" && !hasSequence(lower, 3) {
		score += 6
	}
	if pw != "" && !hasKeyboardPattern(lower, 4) {
		score += 6
	}

	if IsCommon(pw) {
		errs = append(errs, ErrCommon)
	} else if pw != "" {
		score += 6
	}

	if containsUsername(lower, username) {
		errs = append(errs, ErrContainsUser)
	} else if pw != "" {
		score += 6
	}

	if score > 100 {
		score = 100
	}
	if errs == nil {
		errs = []string{}
	}

	return Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Score:    score,
		Strength: StrengthFor(score),
	}
}

func ValidateMatch(pw, confirm string) MatchResult {
	if pw != confirm {
		return MatchResult{Matches: false, Error: ErrDoNotMatch}
	}
	return MatchResult{Matches: true}
}

func StrengthFor(score int) Strength {
	switch {
	case score < 40:
		return VeryWeak
	case score < 55:
		return Weak
	case score < 70:
		return Fair
	case score < 85:
		return Good
	default:
		return Strong
	}
}

func IsCommon(pw string) bool {
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(pw))]
	return ok
}

func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// hasSequence finds n consecutive ascending or descending letters or digits
// ("abc", "321").
func hasSequence(s string, n int) bool {
	rs := []rune(s)
	up, down := 1, 1
	for i := 1; i < len(rs); i++ {
		a, b := rs[i-1], rs[i]
		if !sameClass(a, b) {
			up, down = 1, 1
			continue
		}
		switch b - a {
		case 1:
			up++
			down = 1
		case -1:
			down++
			up = 1
		default:
			up, down = 1, 1
		}
		if up >= n || down >= n {
			return true
		}
	}
	return false
}

func sameClass(a, b rune) bool {
	isAlpha := func(r rune) bool { return r >= 'a' && r <= 'z' }
	isNum := func(r rune) bool { return r >= '0' && r <= '9' }
	return (isAlpha(a) && isAlpha(b)) || (isNum(a) && isNum(b))
}

func hasKeyboardPattern(s string, n int) bool {
	if len(s) < n {
		return false
	}
	for _, row := range keyboardRows {
		rev := reverse(row)
		for i := 0; i+n <= len(row); i++ {
			if strings.Contains(s, row[i:i+n]) || strings.Contains(s, rev[i:i+n]) {
				return true
			}
		}
	}
	return false
}

func containsUsername(lowerPW, username string) bool {
	u := strings.ToLower(strings.TrimSpace(username))
	if at := strings.IndexByte(u, '@'); at > 0 {
		u = u[:at]
	}
	if utf8.RuneCountInString(u) < minUsernameMatch {
		return false
	}
	return strings.Contains(lowerPW, u)
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
