package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	certificateCodePrefix = "SIGEA"
	codeSegmentLength     = 4
	validationCodeLength  = 8
	maxCodeAttempts       = 8
	codeAlphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	certificateCodePattern = regexp.MustCompile(`^SIGEA-[A-Z0-9]{4}-[0-9]{2}$`)
	validationCodePattern  = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

type codeGenerator struct {
	random io.Reader
}

func newCodeGenerator() codeGenerator {
	return codeGenerator{random: rand.Reader}
}

// certificateCode builds SIGEA-XXXX-YY. The first attempt uses the event id prefix;
// later attempts replace the segment with random characters.
func (g codeGenerator) certificateCode(eventID string, issuedAt time.Time, attempt int) (string, error) {
	segment := ""
	if attempt == 0 {
		segment = eventSegment(eventID)
	}

	if missing := codeSegmentLength - len(segment); missing > 0 {
		filler, err := g.randomString(missing)
		if err != nil {
			return "", err
		}
		segment += filler
	}

	return fmt.Sprintf("%s-%s-%s", certificateCodePrefix, segment, issuedAt.Format("06")), nil
}

func (g codeGenerator) validationCode() (string, error) {
	return g.randomString(validationCodeLength)
}

func (g codeGenerator) randomString(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		builder.WriteByte(codeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

func eventSegment(eventID string) string {
	var builder strings.Builder
	for _, r := range strings.ToUpper(eventID) {
		if builder.Len() == codeSegmentLength {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsDigit(r) || unicode.IsLetter(r)) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func normalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func isWellFormedCode(code string) bool {
	return certificateCodePattern.MatchString(code) || validationCodePattern.MatchString(code)
}
