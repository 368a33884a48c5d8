package filter

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Query parameter names understood by ParseCriteria
const (
	ParamFrom     = "from"
	ParamTo       = "to"
	ParamCategory = "category"
	ParamTier     = "tier"
	ParamOutcome  = "outcome"
	ParamSatMin   = "satMin"
	ParamSatMax   = "satMax"
	ParamRevMin   = "revMin"
	ParamRevMax   = "revMax"
	ParamSearch   = "q"
)

// ParseCriteria builds filter criteria from query parameters. Set parameters
// may repeat or hold a comma separated list. A date-only "to" covers that
// whole day.
func ParseCriteria(q url.Values) (types.FilterCriteria, error) {
	var c types.FilterCriteria

	from, err := parseBound(q.Get(ParamFrom), false)
	if err != nil {
		return c, fmt.Errorf("%s: %w", ParamFrom, err)
	}
	to, err := parseBound(q.Get(ParamTo), true)
	if err != nil {
		return c, fmt.Errorf("%s: %w", ParamTo, err)
	}
	if !from.IsZero() || !to.IsZero() {
		c.Dates = &types.DateRange{Start: from, End: to}
	}

	c.Categories = listParam(q[ParamCategory])
	c.Tiers = listParam(q[ParamTier])
	c.Outcomes = listParam(q[ParamOutcome])

	if c.Satisfaction, err = rangeParam(q, ParamSatMin, ParamSatMax); err != nil {
		return c, err
	}
	if c.Revenue, err = rangeParam(q, ParamRevMin, ParamRevMax); err != nil {
		return c, err
	}

	c.Search = strings.TrimSpace(q.Get(ParamSearch))
	return c, nil
}

func parseBound(v string, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC3339", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func rangeParam(q url.Values, minKey, maxKey string) (*types.Range, error) {
	minRaw, maxRaw := strings.TrimSpace(q.Get(minKey)), strings.TrimSpace(q.Get(maxKey))
	if minRaw == "" && maxRaw == "" {
		return nil, nil
	}

	r := types.FullRange()
	if minRaw != "" {
		v, err := strconv.ParseFloat(minRaw, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("%s: invalid number %q", minKey, minRaw)
		}
		r.Min = v
	}
	if maxRaw != "" {
		v, err := strconv.ParseFloat(maxRaw, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("%s: invalid number %q", maxKey, maxRaw)
		}
		r.Max = v
	}
	return &r, nil
}
