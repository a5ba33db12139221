package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/charmbracelet/log"
)

// DefaultFrequency is used for text lines without a frequency column.
const DefaultFrequency = 1

var ErrMalformedLine = errors.New("malformed dictionary line")

// ParseLine reads one "pinyin word [frequency]" line.
func ParseLine(line string) (lexicon.Record, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return lexicon.Record{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	seq, err := syllable.ParseSequence(fields[0])
	if err != nil {
		return lexicon.Record{}, fmt.Errorf("%w: %q: %v", ErrMalformedLine, fields[0], err)
	}
	rec := lexicon.Record{Sequence: seq, Word: fields[1], Score: DefaultFrequency}
	if len(fields) == 3 {
		freq, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || freq < 0 {
			return lexicon.Record{}, fmt.Errorf("%w: frequency %q", ErrMalformedLine, fields[2])
		}
		rec.Score = freq
	}
	return rec, nil
}

// ReadText parses a text dictionary. Blank lines and # comments are skipped;
// malformed lines are logged and skipped.
func ReadText(r io.Reader) ([]lexicon.Record, error) {
	var records []lexicon.Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			log.Debugf("line %d: %v", lineNo, err)
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("reading text dictionary: %w", err)
	}
	if skipped > 0 {
		log.Warnf("Skipped %d malformed dictionary lines", skipped)
	}
	return records, nil
}

// WriteText writes records in the text format, one per line.
func WriteText(w io.Writer, records []lexicon.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%s %s %d\n", r.Sequence.String(), r.Word, r.Score); err != nil {
			return err
		}
	}
	return bw.Flush()
}
