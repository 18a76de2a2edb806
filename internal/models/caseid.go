package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const caseIDPrefix = "ARMLN"

// NewCaseID derives the human-readable case identifier of a report from its
// document id and submission time: ARMLN-<YY>-<last 6 hex digits of the id>.
//
// The trailing bytes of an ObjectID are its per-process counter, so ids
// generated by one process never share a suffix until the counter wraps.
func NewCaseID(id primitive.ObjectID, submittedAt time.Time) string {
	hex := id.Hex()
	return fmt.Sprintf("%s-%02d-%s", caseIDPrefix, submittedAt.Year()%100, strings.ToUpper(hex[len(hex)-6:]))
}

// NormalizeCaseID canonicalises user input before a lookup.
func NormalizeCaseID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
