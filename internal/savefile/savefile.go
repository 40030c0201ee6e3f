// Package savefile reads the handful of fields save-snapper needs from a
// game save document.
package savefile

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Field paths below the document root.
const (
	FieldFarmName = "player/farmName"
	FieldUniqueID = "uniqueIDForThisGame"
	FieldYear     = "year"
	FieldSeason   = "currentSeason"
	FieldDay      = "dayOfMonth"
)

var wantedFields = []string{FieldFarmName, FieldUniqueID, FieldYear, FieldSeason, FieldDay}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingField reports a required field that is absent or empty.
var ErrMissingField = errors.New("missing field")

// GameDate is the in-game date used as the change-detection key.
// The zero value means no date has been observed.
type GameDate struct {
	Year   string `json:"year"`
	Season string `json:"season"`
	Day    string `json:"day"`
}

// IsZero reports whether the date is unset.
func (d GameDate) IsZero() bool {
	return d == GameDate{}
}

func (d GameDate) String() string {
	return fmt.Sprintf("Y%s %s %s", d.Year, d.Season, d.Day)
}

// Save holds the fields read from one save document.
type Save struct {
	FarmName string
	UniqueID string
	Date     GameDate
}

// Read parses the save document at path. The whole document is decoded so a
// file truncated mid-write fails instead of yielding a partial read.
func Read(path string) (Save, error) {
	f, err := os.Open(path)
	if err != nil {
		return Save{}, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a save document from r.
func Decode(r io.Reader) (Save, error) {
	fields, err := collect(skipBOM(r))
	if err != nil {
		return Save{}, err
	}

	for _, name := range wantedFields {
		if fields[name] == "" {
			return Save{}, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	return Save{
		FarmName: fields[FieldFarmName],
		UniqueID: fields[FieldUniqueID],
		Date: GameDate{
			Year:   fields[FieldYear],
			Season: fields[FieldSeason],
			Day:    fields[FieldDay],
		},
	}, nil
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// collect walks every token and keeps the text of the first element found at
// each wanted path. Paths are relative to the root element.
func collect(r io.Reader) (map[string]string, error) {
	wanted := make(map[string]bool, len(wantedFields))
	for _, name := range wantedFields {
		wanted[name] = true
	}

	dec := xml.NewDecoder(r)
	fields := make(map[string]string, len(wantedFields))

	var (
		stack   []string
		text    strings.Builder
		sawRoot bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse save: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if sawRoot {
					return nil, errors.New("parse save: multiple root elements")
				}
				sawRoot = true
			}
			stack = append(stack, t.Name.Local)
			text.Reset()
		case xml.CharData:
			if inRange(stack) && wanted[relPath(stack)] {
				text.Write(t)
			}
		case xml.EndElement:
			if inRange(stack) {
				path := relPath(stack)
				if _, seen := fields[path]; wanted[path] && !seen {
					fields[path] = strings.TrimSpace(text.String())
				}
			}
			stack = stack[:len(stack)-1]
			text.Reset()
		}
	}

	if !sawRoot {
		return nil, errors.New("parse save: empty document")
	}

	return fields, nil
}

// maxDepth is the deepest element stack any wanted path can produce.
const maxDepth = 3

func inRange(stack []string) bool {
	return len(stack) > 1 && len(stack) <= maxDepth
}

func relPath(stack []string) string {
	return strings.Join(stack[1:], "/")
}
