package ingestion

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/insights/internal/metrics"
	"github.com/dennisdiepolder/monti/insights/internal/records"
)

// Report summarizes an applied upload
type Report struct {
	Mode     Mode       `json:"mode"`
	Accepted int        `json:"accepted"`
	Rejected []RowError `json:"rejected"`
	Unmapped []string   `json:"unmappedColumns,omitempty"`
}

// Processor parses uploads and hands the valid rows to a Sink
type Processor struct {
	logger zerolog.Logger
}

// NewProcessor creates a new Processor
func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{
		logger: logger.With().Str("component", "ingestion").Logger(),
	}
}

// Load parses r and applies the accepted rows to sink in a single step.
// Rejected rows are reported, not fatal, unless no row survives. If the sink
// refuses the batch nothing is applied and the sink's error is returned.
func (p *Processor) Load(r io.Reader, sink Sink, mode Mode) (Report, error) {
	start := time.Now()

	res, err := ParseCSV(r)
	if err != nil {
		metrics.Get().RecordUploadError()
		return Report{}, fmt.Errorf("parse upload: %w", err)
	}

	if len(res.Records) == 0 && len(res.Rejected) > 0 {
		metrics.Get().RecordUploadError()
		return Report{}, &records.ValidationError{
			Reason: fmt.Sprintf("no valid rows, %d rejected (first: %s)", len(res.Rejected), res.Rejected[0]),
		}
	}

	switch mode {
	case ModeAppend:
		err = sink.Append(res.Records)
	case ModeReplace:
		err = sink.ReplaceAll(res.Records)
	default:
		err = fmt.Errorf("unknown upload mode %q", mode)
	}
	if err != nil {
		metrics.Get().RecordUploadError()
		p.logger.Warn().Err(err).Str("mode", string(mode)).Msg("upload rejected")
		return Report{}, err
	}

	rejected := res.Rejected
	if rejected == nil {
		rejected = []RowError{}
	}
	report := Report{
		Mode:     mode,
		Accepted: len(res.Records),
		Rejected: rejected,
		Unmapped: res.Unmapped,
	}

	metrics.Get().RecordUpload(time.Since(start), report.Accepted, len(report.Rejected))
	p.logger.Info().
		Str("mode", string(mode)).
		Int("accepted", report.Accepted).
		Int("rejected", len(report.Rejected)).
		Strs("unmapped_columns", report.Unmapped).
		Dur("duration", time.Since(start)).
		Msg("upload applied")

	return report, nil
}
