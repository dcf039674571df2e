package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/gosampler/pkg/sample"
)

// Capture dump protocol, one record per line:
//
//	B,<rate_hz>,<requested>,<ideal_us>,<t|b>   begin; t = timestamped, b = basic
//	S,<index>,<t_us>,<code>                    one sample, indices in order from 0
//	E,<filled>,<ok|timeout>                    end
//	#...                                       comment, ignored
//
// The host requests a run with the single command line "r".
const (
	recBegin   = "B"
	recSample  = "S"
	recEnd     = "E"
	cmdTrigger = "r\n"

	modeTimestamped = "t"
	modeBasic       = "b"
	statusOK        = "ok"
	statusTimeout   = "timeout"

	// maxRequested bounds the buffers allocated for a capture announced by the device.
	maxRequested = 1 << 20
)

// FormatBegin formats the begin record.
func FormatBegin(rateHz, requested int, idealUS uint32, timestamps bool) string {
	mode := modeBasic
	if timestamps {
		mode = modeTimestamped
	}
	return fmt.Sprintf("%s,%d,%d,%d,%s", recBegin, rateHz, requested, idealUS, mode)
}

// FormatSample formats one sample record.
func FormatSample(index int, us uint32, code uint16) string {
	return fmt.Sprintf("%s,%d,%d,%d", recSample, index, us, code)
}

// FormatEnd formats the end record.
func FormatEnd(filled int, timedOut bool) string {
	status := statusOK
	if timedOut {
		status = statusTimeout
	}
	return fmt.Sprintf("%s,%d,%s", recEnd, filled, status)
}

// parser assembles captures from protocol lines.
type parser struct {
	cur    *sample.Capture
	seq    int
	stamps bool
}

// feed consumes one trimmed line. It returns a capture when an end record closes one.
// A malformed line drops the capture being assembled.
func (p *parser) feed(line string) (sample.Capture, bool, error) {
	if line == "" || strings.HasPrefix(line, "#") {
		return sample.Capture{}, false, nil
	}

	parts := strings.Split(line, ",")
	switch parts[0] {
	case recBegin:
		return sample.Capture{}, false, p.begin(parts)
	case recSample:
		if err := p.sample(parts); err != nil {
			p.cur = nil
			return sample.Capture{}, false, err
		}
		return sample.Capture{}, false, nil
	case recEnd:
		cp, err := p.end(parts)
		p.cur = nil
		if err != nil {
			return sample.Capture{}, false, err
		}
		return cp, true, nil
	}
	return sample.Capture{}, false, fmt.Errorf("unknown record %q", parts[0])
}

func (p *parser) begin(parts []string) error {
	p.cur = nil
	if len(parts) != 5 {
		return fmt.Errorf("invalid begin record: expected 5 fields, got %d", len(parts))
	}

	rate, err := strconv.Atoi(parts[1])
	if err != nil || rate <= 0 {
		return fmt.Errorf("invalid rate %q", parts[1])
	}
	requested, err := strconv.Atoi(parts[2])
	if err != nil || requested <= 0 || requested > maxRequested {
		return fmt.Errorf("invalid requested count %q", parts[2])
	}
	ideal, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid ideal interval: %w", err)
	}

	var stamps bool
	switch parts[4] {
	case modeTimestamped:
		stamps = true
	case modeBasic:
	default:
		return fmt.Errorf("invalid mode %q", parts[4])
	}

	p.seq++
	p.stamps = stamps
	p.cur = &sample.Capture{
		Seq:       p.seq,
		RateHz:    rate,
		Requested: requested,
		IdealUS:   uint32(ideal),
		Codes:     make([]uint16, 0, requested),
	}
	if stamps {
		p.cur.Stamps = make([]uint32, 0, requested)
	}
	return nil
}

func (p *parser) sample(parts []string) error {
	if p.cur == nil {
		return fmt.Errorf("sample record outside of a capture")
	}
	if len(parts) != 4 {
		return fmt.Errorf("invalid sample record: expected 4 fields, got %d", len(parts))
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid index: %w", err)
	}
	if index != len(p.cur.Codes) {
		return fmt.Errorf("sample %d out of order, expected %d", index, len(p.cur.Codes))
	}
	if index >= p.cur.Requested {
		return fmt.Errorf("sample %d beyond requested %d", index, p.cur.Requested)
	}
	us, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	code, err := strconv.ParseUint(parts[3], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}

	p.cur.Codes = append(p.cur.Codes, uint16(code))
	if p.stamps {
		p.cur.Stamps = append(p.cur.Stamps, uint32(us))
	}
	return nil
}

func (p *parser) end(parts []string) (sample.Capture, error) {
	if p.cur == nil {
		return sample.Capture{}, fmt.Errorf("end record outside of a capture")
	}
	if len(parts) != 3 {
		return sample.Capture{}, fmt.Errorf("invalid end record: expected 3 fields, got %d", len(parts))
	}

	filled, err := strconv.Atoi(parts[1])
	if err != nil {
		return sample.Capture{}, fmt.Errorf("invalid filled count: %w", err)
	}
	if filled != len(p.cur.Codes) {
		return sample.Capture{}, fmt.Errorf("capture truncated: device filled %d, received %d", filled, len(p.cur.Codes))
	}

	switch parts[2] {
	case statusOK:
	case statusTimeout:
		p.cur.TimedOut = true
	default:
		return sample.Capture{}, fmt.Errorf("invalid status %q", parts[2])
	}

	return *p.cur, nil
}
