package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Sup3r$ecret!")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r$ecret!", hash)

	assert.True(t, h.Verify("Sup3r$ecret!", hash))
	assert.False(t, h.Verify("sup3r$ecret!", hash))
	assert.False(t, h.Verify("Sup3r$ecret!", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("", hash))
}

func TestHasher_DistinctSalts(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("Sup3r$ecret!")
	require.NoError(t, err)
	second, err := h.Hash("Sup3r$ecret!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("Sup3r$ecret!", first))
	assert.True(t, h.Verify("Sup3r$ecret!", second))
}

func TestNewHasher_ClampsCost(t *testing.T) {
	h := NewHasher(999)

	hash, err := h.Hash("Sup3r$ecret!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		opts      PolicyOptions
		wantValid bool
		wantScore int
		wantErrs  []string
	}{
		{
			name:      "strong passphrase",
			candidate: "Tr0ub4dor&Horse",
			opts:      DefaultPolicy(),
			wantValid: true,
			wantScore: 5,
		},
		{
			name:      "too short",
			candidate: "Ab1!",
			opts:      DefaultPolicy(),
			wantValid: false,
			wantScore: 3,
			wantErrs:  []string{"password must be at least 8 characters long"},
		},
		{
			name:      "missing uppercase and number and special",
			candidate: "justlowercase",
			opts:      DefaultPolicy(),
			wantValid: false,
			wantScore: 2,
			wantErrs: []string{
				"password must contain an uppercase letter",
				"password must contain a number",
				"password must contain a special character",
			},
		},
		{
			name:      "relaxed policy accepts lowercase only",
			candidate: "justlowercase",
			opts:      PolicyOptions{},
			wantValid: true,
			wantScore: 2,
		},
		{
			name:      "dictionary prefix costs a point",
			candidate: "Password1!extra",
			opts:      DefaultPolicy(),
			wantValid: true,
			wantScore: 4,
		},
		{
			name:      "repeated run costs a point",
			candidate: "Aaaaa1!bbbb9",
			opts:      DefaultPolicy(),
			wantValid: true,
			wantScore: 4,
		},
		{
			name:      "score floors at zero",
			candidate: "1234566666",
			opts:      PolicyOptions{},
			wantValid: true,
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStrength(tt.candidate, tt.opts)

			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantErrs, got.Errors)
		})
	}
}

func Test_hasRepeatedRun(t *testing.T) {
	assert.True(t, hasRepeatedRun("xxaaaax", 4))
	assert.False(t, hasRepeatedRun("xxaaax", 4))
	assert.False(t, hasRepeatedRun("abababab", 4))
	assert.False(t, hasRepeatedRun("", 4))
}
