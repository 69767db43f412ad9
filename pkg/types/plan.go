package types

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Plan limits
const (
	MaxSearchTerms = 5
	MaxCommunities = 3
)

var (
	planValidate     = validator.New()
	communityPattern = regexp.MustCompile(`^[a-z0-9_]{2,21}$`)
)

// SearchPlan is the planner's output: what to search for and where.
type SearchPlan struct {
	ID          string   `json:"plan_id" validate:"required"`
	Query       string   `json:"query,omitempty"`
	SearchTerms []string `json:"search_terms" validate:"min=1,max=5,dive,required"`
	Communities []string `json:"communities" validate:"min=1,max=3,dive,required"`
	Notes       string   `json:"notes,omitempty"`
}

// Normalized returns a copy with trimmed terms and canonical community names
// (lowercase, no "r/" prefix). Blank and repeated entries are dropped while
// keeping first-seen order.
func (p SearchPlan) Normalized() SearchPlan {
	out := SearchPlan{
		ID:    strings.TrimSpace(p.ID),
		Query: strings.TrimSpace(p.Query),
		Notes: p.Notes,
	}
	out.SearchTerms = uniqueNonBlank(p.SearchTerms, strings.TrimSpace)
	out.Communities = uniqueNonBlank(p.Communities, NormalizeCommunity)
	return out
}

// Validate checks the plan against the inbound contract. Every failure wraps
// ErrInvalidPlan.
func (p SearchPlan) Validate() error {
	if err := planValidate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, describeValidation(err))
	}
	for _, c := range p.Communities {
		if !communityPattern.MatchString(c) {
			return fmt.Errorf("%w: community %q is not a valid name", ErrInvalidPlan, c)
		}
	}
	return nil
}

// QueryText is the text used to rank candidates semantically: the user's
// question when present, the search terms otherwise.
func (p SearchPlan) QueryText() string {
	if q := strings.TrimSpace(p.Query); q != "" {
		return q
	}
	return strings.Join(p.SearchTerms, " ")
}

// NormalizeCommunity lowercases a community name and strips an "r/" or "/r/" prefix.
func NormalizeCommunity(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	return strings.Trim(name, "/")
}

func uniqueNonBlank(in []string, norm func(string) string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s allows at most %s entries", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
