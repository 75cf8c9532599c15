package setup

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/backoffice/internal/rbac"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// SearchKind names the record type of a hit.
type SearchKind string

const (
	KindCustomer SearchKind = "customer"
	KindVendor   SearchKind = "vendor"
	KindAccount  SearchKind = "account"
)

var searchPermissions = map[SearchKind]rbac.Permission{
	KindCustomer: rbac.PermSalesView,
	KindVendor:   rbac.PermPurchasingView,
	KindAccount:  rbac.PermFinanceView,
}

var searchLinks = map[SearchKind]string{
	KindCustomer: "/customers/",
	KindVendor:   "/purchasing/vendors/",
	KindAccount:  "/finance/accounts/",
}

// SearchInput is the setup.globalSearch payload.
type SearchInput struct {
	Query string `json:"query" validate:"required,min=2,max=100"`
	Limit int    `json:"limit" validate:"gte=0,lte=50"`
}

// SearchHit is one matching record.
type SearchHit struct {
	Kind  SearchKind `json:"kind"`
	ID    int64      `json:"id"`
	Code  string     `json:"code"`
	Title string     `json:"title"`
	Link  string     `json:"link"`
	score int
}

// SearchResult lists hits best match first.
type SearchResult struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// SearchRepository returns candidate records of kind whose folded code or
// title contains term.
type SearchRepository interface {
	SearchCandidates(ctx context.Context, kind SearchKind, term string, limit int) ([]SearchHit, error)
}

// Searcher runs global search across the record types a principal may view.
type Searcher struct {
	repo SearchRepository
}

// NewSearcher constructs a Searcher.
func NewSearcher(repo SearchRepository) *Searcher {
	return &Searcher{repo: repo}
}

const defaultSearchLimit = 10

// Search folds the query and ranks candidates: exact code matches first,
// then title prefixes, then substrings.
func (s *Searcher) Search(ctx context.Context, p *rbac.Principal, in SearchInput) (SearchResult, error) {
	term := Fold(in.Query)
	if len([]rune(term)) < 2 {
		return SearchResult{}, shared.FieldError("query", "must contain at least 2 characters")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits := []SearchHit{}
	for _, kind := range []SearchKind{KindCustomer, KindVendor, KindAccount} {
		if p == nil || !p.Has(searchPermissions[kind]) {
			continue
		}
		rows, err := s.repo.SearchCandidates(ctx, kind, term, limit)
		if err != nil {
			return SearchResult{}, err
		}
		for _, h := range rows {
			h.Kind = kind
			h.score = score(term, h)
			if h.score == 0 {
				continue
			}
			if h.Link == "" {
				h.Link = searchLinks[kind] + strconv.FormatInt(h.ID, 10)
			}
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].Title < hits[j].Title
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return SearchResult{Query: in.Query, Hits: hits}, nil
}

func score(term string, h SearchHit) int {
	code, title := Fold(h.Code), Fold(h.Title)
	switch {
	case code == term:
		return 4
	case strings.HasPrefix(title, term) || strings.HasPrefix(code, term):
		return 3
	case strings.Contains(title, " "+term):
		return 2
	case strings.Contains(title, term) || strings.Contains(code, term):
		return 1
	}
	return 0
}

// Fold lowercases s, strips diacritics and collapses whitespace so that
// "Café  Öst" and "cafe ost" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}
