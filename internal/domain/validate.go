package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxEmailLen       = 254
	DefaultQueryLimit = 100
	MaxQueryLimit     = 500
)

var digitsRe = regexp.MustCompile(`^[0-9]+$`)

var emailRe = regexp.MustCompile(`^[a-z0-9.!#$%&'*+/=?^_{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

// FetchInput is a normalized, validated fetch request.
type FetchInput struct {
	AssetID string
	Email   string
}

// QueryFilters are the raw history filters; nil means not supplied.
type QueryFilters struct {
	Limit     *string
	Email     *string
	AssetID   *string
	NextToken *string
}

// HistoryFilter is a validated history request. Index is chosen by the
// presence of an email filter.
type HistoryFilter struct {
	Index   HistoryIndex
	Limit   int
	Email   string
	AssetID string
	After   *Cursor
}

// NewValidationError reports every violation as its own message.
func NewValidationError(details ...string) error {
	return &Error{
		Kind:    KindValidation,
		Op:      "validate",
		Message: strings.Join(details, "; "),
		Details: details,
	}
}

// ValidateFetchInput normalizes and checks an asset id and recipient email.
func ValidateFetchInput(assetID, email string) (FetchInput, error) {
	var problems []string
	a, msg := normalizeAssetID("cryptocurrency", assetID)
	if msg != "" {
		problems = append(problems, msg)
	}
	e, msg := normalizeEmail("email", email)
	if msg != "" {
		problems = append(problems, msg)
	}
	if len(problems) > 0 {
		return FetchInput{}, NewValidationError(problems...)
	}
	return FetchInput{AssetID: a, Email: e}, nil
}

// ValidateQueryInput checks history filters. A supplied cursor must decode and
// belong to the same index and partition as the query it is replayed against.
func ValidateQueryInput(f QueryFilters) (HistoryFilter, error) {
	var problems []string
	q := HistoryFilter{Index: IndexRecent, Limit: DefaultQueryLimit}

	if limit, ok := supplied(f.Limit); ok {
		n, err := strconv.Atoi(limit)
		switch {
		case !digitsRe.MatchString(limit) || err != nil || n <= 0:
			problems = append(problems, "limit must be a positive integer")
		case n > MaxQueryLimit:
			problems = append(problems, fmt.Sprintf("limit must not exceed %d", MaxQueryLimit))
		default:
			q.Limit = n
		}
	}
	emailBad := false
	if email, ok := supplied(f.Email); ok {
		e, msg := normalizeEmail("email", email)
		if msg != "" {
			problems = append(problems, msg)
			emailBad = true
		} else {
			q.Email = e
			q.Index = IndexByRecipient
		}
	}
	if asset, ok := supplied(f.AssetID); ok {
		a, msg := normalizeAssetID("cryptocurrency", asset)
		if msg != "" {
			problems = append(problems, msg)
		} else {
			q.AssetID = a
		}
	}
	if token, ok := supplied(f.NextToken); ok {
		c, err := DecodeCursor(token)
		switch {
		case err != nil:
			problems = append(problems, "nextToken is not a valid pagination token")
		case emailBad:
			// email already reported; the cursor cannot be matched to an index
		case c.Index != q.Index || c.Partition != q.partition():
			problems = append(problems, "nextToken does not belong to this query")
		default:
			q.After = &c
		}
	}
	if len(problems) > 0 {
		return HistoryFilter{}, NewValidationError(problems...)
	}
	return q, nil
}

// supplied returns the trimmed filter value. Absent and blank filters are not supplied.
func supplied(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	return v, v != ""
}

func (q HistoryFilter) partition() string {
	if q.Index == IndexByRecipient {
		return q.Email
	}
	return RecordTypeSearch
}

func normalizeAssetID(field, raw string) (string, string) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return "", field + " is required"
	case len(v) > MaxAssetIDLen:
		return "", fmt.Sprintf("%s must be at most %d characters", field, MaxAssetIDLen)
	case !assetIDRe.MatchString(v):
		return "", field + " may contain only lowercase letters, digits and hyphens"
	case !IsSupportedAsset(v):
		return "", fmt.Sprintf("%s %q is not supported; supported values: %s", field, v, strings.Join(SupportedAssets, ", "))
	}
	return v, ""
}

func normalizeEmail(field, raw string) (string, string) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return "", field + " is required"
	case len(v) > MaxEmailLen:
		return "", fmt.Sprintf("%s must be at most %d characters", field, MaxEmailLen)
	case !emailRe.MatchString(v):
		return "", field + " must be a valid email address"
	}
	return v, ""
}
