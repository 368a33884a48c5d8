package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dennisdiepolder/monti/insights/internal/records"
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// RowError describes a data row that was not imported
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of parsing one CSV document
type Result struct {
	Records  []types.InteractionRecord `json:"-"`
	Rejected []RowError                `json:"rejected"`
	Unmapped []string                  `json:"unmappedColumns,omitempty"`
}

var (
	// ErrNoHeader is returned for empty input
	ErrNoHeader = errors.New("csv has no header row")

	// ErrMalformed is returned when the header row itself cannot be parsed
	ErrMalformed = errors.New("malformed csv")
)

// aliases maps normalized header names to schema fields
var aliases = map[string]types.Field{
	"id":                    types.FieldID,
	"interactionid":         types.FieldID,
	"recordid":              types.FieldID,
	"callid":                types.FieldID,
	"customername":          types.FieldCustomerName,
	"customer":              types.FieldCustomerName,
	"client":                types.FieldCustomerName,
	"agentname":             types.FieldAgentName,
	"agent":                 types.FieldAgentName,
	"occurredat":            types.FieldOccurredAt,
	"date":                  types.FieldOccurredAt,
	"datetime":              types.FieldOccurredAt,
	"timestamp":             types.FieldOccurredAt,
	"calldate":              types.FieldOccurredAt,
	"interactiondate":       types.FieldOccurredAt,
	"durationseconds":       types.FieldDurationSeconds,
	"duration":              types.FieldDurationSeconds,
	"durationsec":           types.FieldDurationSeconds,
	"callduration":          types.FieldDurationSeconds,
	"category":              types.FieldCategory,
	"callcategory":          types.FieldCategory,
	"outcome":               types.FieldOutcome,
	"calloutcome":           types.FieldOutcome,
	"tier":                  types.FieldTier,
	"customertier":          types.FieldTier,
	"success":               types.FieldSuccess,
	"successful":            types.FieldSuccess,
	"satisfactionscore":     types.FieldSatisfactionScore,
	"satisfaction":          types.FieldSatisfactionScore,
	"csat":                  types.FieldSatisfactionScore,
	"revenueimpact":         types.FieldRevenueImpact,
	"revenue":               types.FieldRevenueImpact,
	"conversionprobability": types.FieldConversionProbability,
	"conversionprob":        types.FieldConversionProbability,
	"lifetimevalue":         types.FieldLifetimeValue,
	"ltv":                   types.FieldLifetimeValue,
	"customerlifetimevalue": types.FieldLifetimeValue,
	"transcript":            types.FieldTranscript,
	"summary":               types.FieldSummary,
	"callsummary":           types.FieldSummary,
	"keywordtags":           types.FieldKeywordTags,
	"keywords":              types.FieldKeywordTags,
	"tags":                  types.FieldKeywordTags,
}

// timeOfDayColumn is merged into a date-only occurredAt value
const timeOfDayColumn = "time"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"01/02/2006 15:04",
	"01/02/2006",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// column is where a CSV column ends up
type column struct {
	field     types.Field // schema field, empty for extra columns
	extra     string      // original header of an unmapped column
	timeOfDay bool
}

// ParseCSV reads interaction records from r. Rows that cannot be turned into
// a valid record are reported in Result.Rejected and skipped; the error is
// reserved for input that cannot be read at all.
func ParseCSV(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Result{}, ErrNoHeader
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	res := Result{Records: make([]types.InteractionRecord, 0)}
	cols := make([]column, len(header))
	mapped := make(map[types.Field]bool)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		norm := normalizeHeader(h)
		if norm == timeOfDayColumn {
			cols[i] = column{timeOfDay: true}
			continue
		}
		if f, ok := aliases[norm]; ok && !mapped[f] {
			mapped[f] = true
			cols[i] = column{field: f}
			continue
		}
		name := strings.TrimSpace(h)
		cols[i] = column{extra: name}
		res.Unmapped = append(res.Unmapped, name)
	}

	seen := make(map[string]int)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Rejected = append(res.Rejected, RowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blankRow(row) {
			continue
		}

		rec, err := parseRow(cols, row)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if first, dup := seen[rec.ID]; dup {
			res.Rejected = append(res.Rejected, RowError{
				Line:   line,
				Reason: fmt.Sprintf("duplicate id %s (first seen on line %d)", rec.ID, first),
			})
			continue
		}
		seen[rec.ID] = line
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(cols []column, row []string) (types.InteractionRecord, error) {
	var rec types.InteractionRecord
	var timeOfDay string

	for i, raw := range row {
		if i >= len(cols) {
			break
		}
		v := strings.TrimSpace(raw)
		col := cols[i]
		switch {
		case col.timeOfDay:
			timeOfDay = v
			continue
		case col.field == "":
			if v != "" {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[col.extra] = v
			}
			continue
		}
		if err := setField(&rec, col.field, v); err != nil {
			return rec, fmt.Errorf("%s: %w", col.field, err)
		}
	}

	if timeOfDay != "" && !rec.OccurredAt.IsZero() && isMidnight(rec.OccurredAt) {
		tod, err := parseTimeOfDay(timeOfDay)
		if err != nil {
			return rec, fmt.Errorf("time: %w", err)
		}
		rec.OccurredAt = rec.OccurredAt.Add(tod)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := records.Validate(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func setField(rec *types.InteractionRecord, f types.Field, v string) error {
	switch f {
	case types.FieldID:
		rec.ID = v
	case types.FieldCustomerName:
		rec.CustomerName = v
	case types.FieldAgentName:
		rec.AgentName = v
	case types.FieldCategory:
		rec.Category = v
	case types.FieldOutcome:
		rec.Outcome = v
	case types.FieldTier:
		rec.Tier = v
	case types.FieldTranscript:
		rec.Transcript = v
	case types.FieldSummary:
		rec.Summary = v
	case types.FieldKeywordTags:
		rec.KeywordTags = v
	case types.FieldOccurredAt:
		if v == "" {
			return nil
		}
		t, err := ParseTime(v)
		if err != nil {
			return err
		}
		rec.OccurredAt = t
	case types.FieldDurationSeconds:
		if v == "" {
			return nil
		}
		n, err := parseDuration(v)
		if err != nil {
			return err
		}
		rec.DurationSeconds = n
	case types.FieldSuccess:
		b, err := ParseBool(v)
		if err != nil {
			return err
		}
		rec.Success = b
	case types.FieldRevenueImpact:
		if v == "" {
			return nil
		}
		n, err := parseNumber(v)
		if err != nil {
			return err
		}
		rec.RevenueImpact = n
	case types.FieldSatisfactionScore:
		return setOptional(&rec.SatisfactionScore, v)
	case types.FieldConversionProbability:
		return setOptional(&rec.ConversionProbability, v)
	case types.FieldLifetimeValue:
		return setOptional(&rec.LifetimeValue, v)
	}
	return nil
}

func setOptional(dst **float64, v string) error {
	if v == "" {
		return nil
	}
	n, err := parseNumber(v)
	if err != nil {
		return err
	}
	*dst = types.Float(n)
	return nil
}

// parseNumber accepts plain numbers plus currency symbols and thousands
// separators. A trailing % scales the value to a fraction, so "75%" is 0.75.
func parseNumber(v string) (float64, error) {
	clean := strings.NewReplacer("$", "", "€", "", ",", "", " ", "").Replace(v)
	percent := strings.HasSuffix(clean, "%")
	clean = strings.TrimSuffix(clean, "%")
	n, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	if percent {
		n /= 100
	}
	return n, nil
}

// maxDurationSeconds bounds durations to what fits an int32 on every platform
const maxDurationSeconds = math.MaxInt32

// parseDuration reads a whole number of seconds
func parseDuration(v string) (int, error) {
	n, err := parseNumber(v)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("duration %q is not a whole number of seconds", v)
	}
	if n < 0 || n > maxDurationSeconds {
		return 0, fmt.Errorf("duration %q out of range", v)
	}
	return int(n), nil
}

// ParseBool accepts Yes/No, true/false, y/n and 1/0 in any case. Blank is false.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid yes/no value %q", v)
}

// ParseTime accepts the timestamp layouts commonly found in CRM exports.
// Values without a zone are taken as UTC.
func ParseTime(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func parseTimeOfDay(v string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", v)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
