package funnel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ncruces/go-strftime"
	"github.com/valyala/bytebufferpool"
)

// Template keys understood by %(key)s / %(key)d placeholders.
const (
	keyAsctime   = "asctime"
	keyName      = "name"
	keyLevelname = "levelname"
	keyMessage   = "message"
	keyFilename  = "filename"
	keyLineno    = "lineno"
)

// defaultFormat and defaultDatefmt mirror the conventional handler defaults.
const (
	defaultFormat  = "%(asctime)s - %(name)s - %(levelname)s - %(message)s"
	defaultDatefmt = "%Y-%m-%d %H:%M:%S"
)

// segment is one parsed piece of a format template: either a literal or a
// placeholder key.
type segment struct {
	lit string
	key string
}

// lineFormat is a format template parsed once at sink construction and
// rendered per record on the dispatch side. Templates are only ever needed
// by the process that owns the sinks.
type lineFormat struct {
	segs        []segment
	datefmt     string
	needsSource bool
}

// spewConfig produces compact, deterministic dumps for values the plain
// formatter has no better representation for.
var spewConfig = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// parseFormat compiles a %(key)s template. Unknown keys are rejected at
// construction time rather than surfacing per record.
func parseFormat(format, datefmt string) (*lineFormat, error) {
	if format == "" {
		format = defaultFormat
	}
	if datefmt == "" {
		datefmt = defaultDatefmt
	}

	f := &lineFormat{datefmt: datefmt}
	for len(format) > 0 {
		start := strings.Index(format, "%(")
		if start < 0 {
			f.segs = append(f.segs, segment{lit: format})
			break
		}
		if start > 0 {
			f.segs = append(f.segs, segment{lit: format[:start]})
		}
		rest := format[start+2:]
		end := strings.IndexByte(rest, ')')
		// A placeholder is "%(key)" followed by a printf-style verb char.
		if end < 0 || end+1 >= len(rest) {
			return nil, fmtErrorf("unterminated placeholder in format template: '%s'", format)
		}
		key := rest[:end]
		switch key {
		case keyAsctime, keyName, keyLevelname, keyMessage, keyFilename, keyLineno:
		default:
			return nil, fmtErrorf("unsupported format template key: '%%(%s)'", key)
		}
		if key == keyFilename || key == keyLineno {
			f.needsSource = true
		}
		f.segs = append(f.segs, segment{key: key})
		format = rest[end+2:] // skip ")X" where X is the verb
	}
	return f, nil
}

// render produces the formatted line for a record, newline-terminated.
// The returned slice is freshly allocated; the pooled buffer is recycled.
func (f *lineFormat) render(rec Record) []byte {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)

	for _, seg := range f.segs {
		if seg.key == "" {
			b.B = append(b.B, seg.lit...)
			continue
		}
		switch seg.key {
		case keyAsctime:
			b.B = append(b.B, strftime.Format(f.datefmt, rec.Time)...)
		case keyName:
			if rec.Channel == "" {
				b.B = append(b.B, "root"...)
			} else {
				b.B = append(b.B, rec.Channel...)
			}
		case keyLevelname:
			b.B = append(b.B, rec.Level.String()...)
		case keyMessage:
			b.B = append(b.B, rec.Message...)
		case keyFilename:
			b.B = append(b.B, rec.File...)
		case keyLineno:
			b.B = strconv.AppendInt(b.B, int64(rec.Line), 10)
		}
	}

	// Key/value args follow the templated portion.
	for i := 0; i < len(rec.Args); i++ {
		b.B = append(b.B, ' ')
		appendValue(b, rec.Args[i])
		if i+1 < len(rec.Args) {
			b.B = append(b.B, '=')
			i++
			appendValue(b, rec.Args[i])
		}
	}

	b.B = append(b.B, '\n')
	line := make([]byte, len(b.B))
	copy(line, b.B)
	return line
}

// appendValue converts a value to its text representation, delegating
// anything non-primitive to a compact spew dump.
func appendValue(b *bytebufferpool.ByteBuffer, v any) {
	switch val := v.(type) {
	case string:
		b.B = append(b.B, val...)
	case int:
		b.B = strconv.AppendInt(b.B, int64(val), 10)
	case int64:
		b.B = strconv.AppendInt(b.B, val, 10)
	case uint:
		b.B = strconv.AppendUint(b.B, uint64(val), 10)
	case uint64:
		b.B = strconv.AppendUint(b.B, val, 10)
	case float32:
		b.B = strconv.AppendFloat(b.B, float64(val), 'f', -1, 32)
	case float64:
		b.B = strconv.AppendFloat(b.B, val, 'f', -1, 64)
	case bool:
		b.B = strconv.AppendBool(b.B, val)
	case nil:
		b.B = append(b.B, "nil"...)
	case time.Time:
		b.B = val.AppendFormat(b.B, time.RFC3339Nano)
	case error:
		b.B = append(b.B, val.Error()...)
	case fmt.Stringer:
		b.B = append(b.B, val.String()...)
	default:
		var buf bytes.Buffer
		spewConfig.Fdump(&buf, val)
		b.B = append(b.B, bytes.TrimSpace(buf.Bytes())...)
	}
}
