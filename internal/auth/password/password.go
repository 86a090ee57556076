package password

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 8
	MaxScore  = 5
)

// commonPatterns are dictionary prefixes that cost a strength point when a
// candidate password starts with one of them.
var commonPatterns = []string{
	"password", "123456", "qwerty", "letmein", "welcome", "abc123", "admin",
}

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify never returns an error: a malformed hash compares as a mismatch.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Strength is the result of ValidateStrength. Score is a 0-5 UX heuristic;
// only Valid and Errors gate anything.
type Strength struct {
	Valid  bool
	Score  int
	Errors []string
}

type PolicyOptions struct {
	RequireUppercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func DefaultPolicy() PolicyOptions {
	return PolicyOptions{
		RequireUppercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
	}
}

// ValidateStrength checks the candidate against the policy and produces one
// error per violated rule.
func ValidateStrength(candidate string, opts PolicyOptions) Strength {
	var errs []string
	score := 0

	if len(candidate) < MinLength {
		errs = append(errs, "password must be at least 8 characters long")
	} else {
		score++
	}
	if len(candidate) >= 12 {
		score++
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if opts.RequireUppercase && !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if opts.RequireNumber && !hasNumber {
		errs = append(errs, "password must contain a number")
	}
	if opts.RequireSpecial && !hasSpecial {
		errs = append(errs, "password must contain a special character")
	}

	if hasUpper && hasLower {
		score++
	}
	if hasNumber {
		score++
	}
	if hasSpecial {
		score++
	}

	lowered := strings.ToLower(candidate)
	for _, pattern := range commonPatterns {
		if strings.HasPrefix(lowered, pattern) {
			score--
			break
		}
	}
	if hasRepeatedRun(candidate, 4) {
		score--
	}

	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}

	return Strength{
		Valid:  len(errs) == 0,
		Score:  score,
		Errors: errs,
	}
}

// hasRepeatedRun reports a run of n or more identical characters.
func hasRepeatedRun(s string, n int) bool {
	run := 1
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
