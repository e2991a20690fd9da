package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateComplexity_ShortPasswordsAreInvalid(t *testing.T) {
	for _, pw := range []string{"", "a", "Ab1!", "Password1!", "Xy7#Xy7#Xy7", strings.Repeat("Z", 11)} {
		res := ValidateComplexity(pw, "")
		assert.False(t, res.IsValid, "password %q", pw)
		assert.Contains(t, res.Errors, ErrTooShort, "password %q", pw)
	}
}

func TestValidateComplexity_StrongPassphrase(t *testing.T) {
	res := ValidateComplexity("CorrectHorse9!Battery", "")
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Strength.AtLeast(Good), "strength %s", res.Strength)
	assert.Equal(t, 100, res.Score)
}

func TestValidateComplexity_MissingClasses(t *testing.T) {
	res := ValidateComplexity("alllowercaseletters", "")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, ErrNoUppercase)
	assert.Contains(t, res.Errors, ErrNoDigit)
	assert.Contains(t, res.Errors, ErrNoSpecial)
	assert.NotContains(t, res.Errors, ErrNoLowercase)
}

func TestValidateComplexity_CommonAndUsername(t *testing.T) {
	res := ValidateComplexity("Password123!", "")
	assert.Contains(t, res.Errors, ErrCommon)

	res = ValidateComplexity("Mjones-Extinguish7!", "mjones@example.com")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, ErrContainsUser)

	res = ValidateComplexity("Mjones-Extinguish7!", "mj")
	assert.NotContains(t, res.Errors, ErrContainsUser)
}

func TestValidateComplexity_PatternsLowerScore(t *testing.T) {
	clean := ValidateComplexity("Tb7#mQ2!vLp9@wRz", "")
	patterned := ValidateComplexity("Qwerty111!abcXyz", "")

	assert.True(t, clean.IsValid)
	assert.True(t, patterned.IsValid)
	assert.Less(t, patterned.Score, clean.Score)
	assert.Equal(t, clean.Score-18, patterned.Score)
}

func TestValidateComplexity_Deterministic(t *testing.T) {
	a := ValidateComplexity("Hydrant-Check-2024!", "inspector")
	b := ValidateComplexity("Hydrant-Check-2024!", "inspector")
	assert.Equal(t, a, b)
}

func TestStrengthFor(t *testing.T) {
	tests := []struct {
		score int
		want  Strength
	}{
		{0, VeryWeak},
		{39, VeryWeak},
		{40, Weak},
		{55, Fair},
		{70, Good},
		{84, Good},
		{85, Strong},
		{100, Strong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrengthFor(tt.score), "score %d", tt.score)
	}
}

func TestValidateMatch(t *testing.T) {
	assert.Equal(t, MatchResult{Matches: true}, ValidateMatch("a", "a"))

	res := ValidateMatch("a", "b")
	assert.False(t, res.Matches)
	assert.Equal(t, "Passwords do not match", res.Error)
}

func TestHelpers(t *testing.T) {
	assert.True(t, hasSequence("xx123", 3))
	assert.True(t, hasSequence("zyx", 3))
	assert.False(t, hasSequence("a1b2c3", 3))
	assert.True(t, hasRepeatedRun("heyyy", 3))
	assert.False(t, hasRepeatedRun("battery", 3))
	assert.True(t, hasKeyboardPattern("myasdfpass", 4))
	assert.True(t, hasKeyboardPattern("poiu", 4))
	assert.False(t, hasKeyboardPattern("correcthorse9!battery", 4))
}
