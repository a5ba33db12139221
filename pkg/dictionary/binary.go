package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/vmihailenco/msgpack/v5"
)

// BinaryVersion is the binary format revision written by WriteBinary.
const BinaryVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported binary dictionary version")

// binaryHeader opens a binary dictionary: the record count that follows.
type binaryHeader struct {
	Version int `msgpack:"v"`
	Count   int `msgpack:"n"`
}

// binaryRecord keys carry tones in the text notation ("ni3'hao3").
type binaryRecord struct {
	Key  string `msgpack:"k"`
	Word string `msgpack:"w"`
	Freq int64  `msgpack:"f"`
}

func newDecoder(r io.Reader) *msgpack.Decoder {
	return msgpack.NewDecoder(r)
}

func readHeader(dec *msgpack.Decoder) (binaryHeader, error) {
	var h binaryHeader
	if err := dec.Decode(&h); err != nil {
		return h, err
	}
	if h.Version != BinaryVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Count < 0 {
		return h, fmt.Errorf("invalid record count %d", h.Count)
	}
	return h, nil
}

// WriteBinary encodes records as a msgpack header followed by the records.
func WriteBinary(w io.Writer, records []lexicon.Record) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	if err := enc.Encode(binaryHeader{Version: BinaryVersion, Count: len(records)}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		rec := binaryRecord{Key: r.Sequence.String(), Word: r.Word, Freq: r.Score}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing record %q: %w", r.Word, err)
		}
	}
	return bw.Flush()
}

// ReadBinary decodes a stream written by WriteBinary.
func ReadBinary(r io.Reader) ([]lexicon.Record, error) {
	dec := newDecoder(bufio.NewReader(r))
	h, err := readHeader(dec)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	records := make([]lexicon.Record, 0, h.Count)
	for i := 0; i < h.Count; i++ {
		var rec binaryRecord
		if err := dec.Decode(&rec); err != nil {
			return records, fmt.Errorf("reading record %d of %d: %w", i+1, h.Count, err)
		}
		seq, err := syllable.ParseSequence(rec.Key)
		if err != nil {
			return records, fmt.Errorf("record %d key %q: %w", i+1, rec.Key, err)
		}
		records = append(records, lexicon.Record{Sequence: seq, Word: rec.Word, Score: rec.Freq})
	}
	return records, nil
}
