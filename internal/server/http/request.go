package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Request bounds.
const (
	defaultMaxLimit    = 200
	maxQueryLength     = 500
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequest is the JSON body of POST /papers/search. GET requests are
// parsed into the same shape from query parameters.
type searchRequest struct {
	Query   string         `json:"query" validate:"required,max=500"`
	Limit   int            `json:"limit" validate:"gte=0"`
	Filters filtersRequest `json:"filters"`
}

type filtersRequest struct {
	PublicationYearMin *int     `json:"publication_year_min" validate:"omitempty,gte=1000,lte=3000"`
	PublicationYearMax *int     `json:"publication_year_max" validate:"omitempty,gte=1000,lte=3000"`
	MinCitations       *int     `json:"min_citations" validate:"omitempty,gte=0"`
	OpenAccess         *bool    `json:"open_access"`
	VenueType          []string `json:"venue_type" validate:"omitempty,max=5,dive,oneof=journal conference book repository other"`
	FieldOfStudy       []string `json:"field_of_study" validate:"omitempty,max=20,dive,min=1,max=100"`
	SortBy             string   `json:"sort_by" validate:"omitempty,oneof=relevance publication_date cited_by_count"`
	SortOrder          string   `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

func (f filtersRequest) toDomain() domain.SearchFilters {
	filters := domain.SearchFilters{
		PublicationYearMin: f.PublicationYearMin,
		PublicationYearMax: f.PublicationYearMax,
		MinCitations:       f.MinCitations,
		OpenAccess:         f.OpenAccess,
		FieldOfStudy:       f.FieldOfStudy,
		SortBy:             domain.SortField(f.SortBy),
		SortOrder:          domain.SortOrder(f.SortOrder),
	}
	for _, v := range f.VenueType {
		filters.VenueType = append(filters.VenueType, domain.VenueType(v))
	}
	return filters
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct validation and converts the first failure into
// a domain.ValidationError.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(fieldPath(fe), describeTag(fe))
	}
	return domain.NewValidationError("request", err.Error())
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parseSearchQuery builds a searchRequest from GET query parameters.
func parseSearchQuery(q url.Values) (searchRequest, error) {
	req := searchRequest{Query: strings.TrimSpace(q.Get("q"))}

	var err error
	if req.Limit, err = optionalInt(q, "limit", 0); err != nil {
		return req, err
	}
	if req.Filters.PublicationYearMin, err = optionalIntPtr(q, "year_min"); err != nil {
		return req, err
	}
	if req.Filters.PublicationYearMax, err = optionalIntPtr(q, "year_max"); err != nil {
		return req, err
	}
	if req.Filters.MinCitations, err = optionalIntPtr(q, "min_citations"); err != nil {
		return req, err
	}
	if raw := q.Get("open_access"); raw != "" {
		b, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return req, domain.NewValidationError("open_access", "must be a boolean")
		}
		req.Filters.OpenAccess = &b
	}
	req.Filters.VenueType = splitList(q.Get("venue_type"))
	req.Filters.FieldOfStudy = splitList(q.Get("field_of_study"))
	req.Filters.SortBy = q.Get("sort_by")
	req.Filters.SortOrder = q.Get("sort_order")
	return req, nil
}

func optionalInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

func optionalIntPtr(q url.Values, key string) (*int, error) {
	if q.Get(key) == "" {
		return nil, nil
	}
	v, err := optionalInt(q, key, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// splitList parses a comma-separated parameter, dropping empty items.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// clampLimit bounds a caller-supplied limit. Zero is passed through so the
// orchestrator can apply its default.
func (s *Server) clampLimit(limit int) int {
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
