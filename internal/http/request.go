package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

// validateRequest runs the struct tags of req and reports failures as a
// *application.ValidationError keyed by JSON field name.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := fieldErrors{}
	for _, fe := range verrs {
		fields.add(fe.Field(), describeFieldError(fe))
	}
	return fields.err()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// fieldErrors accumulates field level problems found while decoding a request.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: f}
}

func (f fieldErrors) date(field, value string) time.Time {
	t, err := interval.ParseDate(strings.TrimSpace(value))
	if err != nil {
		f.add(field, fmt.Sprintf("%s must be a date formatted as %s", field, interval.DateLayout))
	}
	return t
}

func (f fieldErrors) timestamp(field, value string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		f.add(field, fmt.Sprintf("%s must be an RFC 3339 timestamp", field))
		return time.Time{}
	}
	return t.UTC()
}

func (f fieldErrors) optionalDate(field string, value application.Optional[string]) application.Optional[time.Time] {
	raw, ok := value.Get()
	if !ok {
		return application.None[time.Time]()
	}
	return application.Some(f.date(field, raw))
}

func (f fieldErrors) optionalTimestamp(field string, value application.Optional[string]) application.Optional[time.Time] {
	raw, ok := value.Get()
	if !ok {
		return application.None[time.Time]()
	}
	return application.Some(f.timestamp(field, raw))
}

func (f fieldErrors) intParam(query url.Values, name string) int {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		f.add(name, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0
	}
	return n
}

// dateRange reads a from/to pair of calendar dates. Both or neither must be present.
func (f fieldErrors) dateRange(query url.Values, fromKey, toKey string) *interval.Interval {
	return f.rangeOf(query, fromKey, toKey, f.date)
}

// timeRange reads a from/to pair of RFC 3339 timestamps.
func (f fieldErrors) timeRange(query url.Values, fromKey, toKey string) *interval.Interval {
	return f.rangeOf(query, fromKey, toKey, f.timestamp)
}

func (f fieldErrors) rangeOf(query url.Values, fromKey, toKey string, parse func(field, value string) time.Time) *interval.Interval {
	from, to := strings.TrimSpace(query.Get(fromKey)), strings.TrimSpace(query.Get(toKey))
	switch {
	case from == "" && to == "":
		return nil
	case from == "" || to == "":
		f.add(fromKey, fmt.Sprintf("%s and %s must be provided together", fromKey, toKey))
		return nil
	}
	start, end := parse(fromKey, from), parse(toKey, to)
	if _, bad := f[fromKey]; bad {
		return nil
	}
	if _, bad := f[toKey]; bad {
		return nil
	}
	period := interval.New(start, end)
	return &period
}

type pageResponse[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
}

func toPageResponse[T, D any](page application.Page[T], convert func(T) D) pageResponse[D] {
	items := make([]D, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return pageResponse[D]{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		HasNext:  page.HasNext,
		HasPrev:  page.HasPrev,
	}
}

type countResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
