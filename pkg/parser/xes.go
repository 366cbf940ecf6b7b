package parser

import (
	"bufio"
	"bytes"
	"context"
	"io"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// XES attribute key constants (as byte slices for zero-alloc comparison)
var (
	xesConceptName = []byte("concept:name")
	xesTimeStamp   = []byte("time:timestamp")
	xesOrgResource = []byte("org:resource")
)

// XML element names
var (
	xmlLog    = []byte("log")
	xmlTrace  = []byte("trace")
	xmlEvent  = []byte("event")
	xmlString = []byte("string")
	xmlDate   = []byte("date")
	xmlInt    = []byte("int")
	xmlFloat  = []byte("float")
	xmlBool   = []byte("boolean")
)

// XES parser states
type xesState uint8

const (
	stateInit xesState = iota
	stateLog
	stateTrace
	stateEvent
)

// XESReader implements streaming XES parsing using a state machine and
// projects the log onto a table with XES-standard column names. Extra
// event attributes become additional columns in discovery order.
type XESReader struct {
	cfg Config
}

// NewXESReader creates a new XES reader.
func NewXESReader(cfg Config) *XESReader {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 64 * 1024
	}
	return &XESReader{cfg: cfg}
}

// xesEvent accumulates one event's attributes before projection.
type xesEvent struct {
	caseID    string
	activity  string
	timestamp string
	resource  string
	attrs     map[string]string
}

// Read implements the Reader interface.
func (p *XESReader) Read(ctx context.Context, r io.Reader) (*Table, error) {
	reader := bufio.NewReaderSize(r, p.cfg.BufferSize)

	state := stateInit
	var currentCaseID string
	var current *xesEvent
	var events []xesEvent
	var extraCols []string
	extraSeen := make(map[string]struct{})
	sawLog := false

	for {
		select {
		case <-ctx.Done():
			return nil, perrors.New(perrors.CodeContextCanceled, "read canceled")
		default:
		}

		line, err := reader.ReadBytes('>')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		switch {
		case isOpenTag(line, xmlLog):
			state = stateLog
			sawLog = true

		case isOpenTag(line, xmlTrace):
			state = stateTrace
			currentCaseID = ""

		case isCloseTag(line, xmlTrace):
			state = stateLog
			currentCaseID = ""

		case isOpenTag(line, xmlEvent):
			state = stateEvent
			current = &xesEvent{caseID: currentCaseID}

		case isCloseTag(line, xmlEvent):
			if current != nil {
				for k := range current.attrs {
					if _, ok := extraSeen[k]; !ok {
						extraSeen[k] = struct{}{}
						extraCols = append(extraCols, k)
					}
				}
				events = append(events, *current)
				current = nil
			}
			state = stateTrace

		case state == stateTrace && isAttributeTag(line):
			// Trace-level attribute (for case ID)
			key, value := extractAttribute(line)
			if bytes.Equal(key, xesConceptName) {
				currentCaseID = string(value)
			}

		case state == stateEvent && isAttributeTag(line):
			if current != nil {
				processEventAttribute(line, current)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if !sawLog {
		return nil, perrors.New(perrors.CodeInvalidFormat, "not an XES document")
	}

	return projectXES(events, extraCols), nil
}

// projectXES shapes accumulated events into the tabular projection.
func projectXES(events []xesEvent, extraCols []string) *Table {
	header := []string{"case:concept:name", "concept:name", "time:timestamp", "org:resource"}
	header = append(header, extraCols...)

	rows := make([][]string, 0, len(events))
	for i := range events {
		e := &events[i]
		row := make([]string, len(header))
		row[0] = e.caseID
		row[1] = e.activity
		row[2] = e.timestamp
		row[3] = e.resource
		for j, col := range extraCols {
			row[4+j] = e.attrs[col]
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}
}

// isOpenTag checks if line is an opening tag for the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 {
		return false
	}
	if line[0] != '<' {
		return false
	}
	if bytes.HasPrefix(line[1:], element) {
		next := 1 + len(element)
		if next >= len(line) {
			return true
		}
		c := line[next]
		return c == '>' || c == ' ' || c == '\t' || c == '/'
	}
	return false
}

// isCloseTag checks if line is a closing tag for the given element.
func isCloseTag(line, element []byte) bool {
	if len(line) < len(element)+3 {
		return false
	}
	if line[0] == '<' && line[1] == '/' {
		return bytes.HasPrefix(line[2:], element)
	}
	// Self-closing <element ... />
	if line[0] == '<' && bytes.HasPrefix(line[1:], element) {
		return line[len(line)-2] == '/' && line[len(line)-1] == '>'
	}
	return false
}

// isAttributeTag checks if line is an XES attribute element.
func isAttributeTag(line []byte) bool {
	if len(line) < 3 || line[0] != '<' {
		return false
	}
	return bytes.HasPrefix(line[1:], xmlString) ||
		bytes.HasPrefix(line[1:], xmlDate) ||
		bytes.HasPrefix(line[1:], xmlInt) ||
		bytes.HasPrefix(line[1:], xmlFloat) ||
		bytes.HasPrefix(line[1:], xmlBool)
}

// extractAttribute extracts key and value from an XES attribute element.
func extractAttribute(line []byte) (key, value []byte) {
	key = extractAttrValue(line, []byte(`key="`))
	value = extractAttrValue(line, []byte(`value="`))
	return key, value
}

// extractAttrValue extracts an XML attribute value.
func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}

// processEventAttribute routes an attribute element into the event.
func processEventAttribute(line []byte, event *xesEvent) {
	key, value := extractAttribute(line)
	if key == nil || value == nil {
		return
	}

	switch {
	case bytes.Equal(key, xesConceptName):
		event.activity = string(value)
	case bytes.Equal(key, xesTimeStamp):
		event.timestamp = string(value)
	case bytes.Equal(key, xesOrgResource):
		event.resource = string(value)
	default:
		if event.attrs == nil {
			event.attrs = make(map[string]string, 4)
		}
		event.attrs[string(key)] = string(value)
	}
}
