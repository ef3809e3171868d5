package user

import (
	"errors"
	"strconv"
	"strings"

	"github.com/qazmun/mun/core"
)

const FounderCode = "Founder1"

var (
	ErrInvalidCode = errors.New("invalid verification code")

	codePrefixes = []struct {
		prefix    string
		role      Role
		secretary SecretaryType
	}{
		{prefix: "Administrator", role: RoleAdmin},
		{prefix: "General-Secretary", role: RoleGeneralSecretary, secretary: SecretaryGeneral},
		{prefix: "Deputy-Secretary", role: RoleDeputy, secretary: SecretaryDeputy},
	}
)

// Verification is what a valid verification code grants.
type Verification struct {
	Role          Role
	SchoolID      int // 0 for the founder code
	SecretaryType SecretaryType
}

// ParseVerificationCode parses `Founder1`, `Administrator<N>`, `General-Secretary<N>` or `Deputy-Secretary<N>`,
// N being a positive integer (the school/region id).
func ParseVerificationCode(code string) (Verification, error) {
	code = core.CleanString(code)
	if code == FounderCode {
		return Verification{Role: RoleFounder}, nil
	}

	for _, p := range codePrefixes {
		if !strings.HasPrefix(code, p.prefix) {
			continue
		}
		id, ok := parsePositiveInt(code[len(p.prefix):])
		if !ok {
			return Verification{}, ErrInvalidCode
		}
		return Verification{Role: p.role, SchoolID: id, SecretaryType: p.secretary}, nil
	}
	return Verification{}, ErrInvalidCode
}

// VerifyCode parses `code` and checks that it grants the `selected` role.
func VerifyCode(code string, selected Role) (Verification, error) {
	v, err := ParseVerificationCode(code)
	if err != nil {
		return Verification{}, err
	}
	if v.Role != selected {
		return Verification{}, ErrInvalidCode
	}
	return v, nil
}

func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
