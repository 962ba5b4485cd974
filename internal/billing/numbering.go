package billing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var codePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)

// FinancialYear returns the first calendar year of the April-March financial
// year containing t, and its label such as "2025-26".
func FinancialYear(t time.Time) (int, string) {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return start, fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// BillNumberPrefix is the part of a bill number shared by every bill of one
// franchise in one month, e.g. "DIP/2025-26/07-".
func BillNumberPrefix(code string, t time.Time) string {
	_, fy := FinancialYear(t)
	return fmt.Sprintf("%s/%s/%02d-", code, fy, int(t.Month()))
}

// FormatBillNumber renders {CODE}/{FY}/{MM}-{NNNN}.
func FormatBillNumber(code string, t time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", BillNumberPrefix(code, t), seq)
}

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

var ErrCodeUnderivable = errors.New("franchise name needs at least two letters to derive a code")

// CodeCandidates lists franchise codes for a franchise name in preference
// order: the first three letters, then the first two letters with each later
// letter, then two-letter codes. Callers pick the first one not in use.
func CodeCandidates(name string) ([]string, error) {
	var letters []byte
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, byte(r))
		}
	}
	if len(letters) < 2 {
		return nil, ErrCodeUnderivable
	}

	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	if len(letters) >= 3 {
		add(string(letters[:3]))
		for i := 3; i < len(letters); i++ {
			add(string([]byte{letters[0], letters[1], letters[i]}))
		}
	}
	add(string(letters[:2]))
	for i := 2; i < len(letters); i++ {
		add(string([]byte{letters[0], letters[i]}))
	}
	return out, nil
}
