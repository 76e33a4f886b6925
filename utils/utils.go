package utils

import (
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/text/unicode/norm"
)

func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	// Preferred: typed error
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Sometimes we might get a BulkWriteException
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Fallback
	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

// NormalizeEmail folds an address to the form it is stored and looked up
// under.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

var spaces = regexp.MustCompile(`\s+`)

// NormalizeName composes accents and collapses runs of whitespace.
func NormalizeName(name string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(norm.NFC.String(name), " "))
}

func ParseObjectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, false
	}
	return oid, true
}

// MaxPage bounds page numbers so skip cannot overflow.
const MaxPage = 10000

// Paginate clamps page and limit and returns the matching skip. A limit
// outside 1..max falls back to def or max.
func Paginate(page, limit, def, max int) (int, int, int64) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit, int64(page-1) * int64(limit)
}

func CompactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
