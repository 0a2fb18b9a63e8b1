package heartbeat

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ja7ad/heartbeat/pkg/state"
)

// Sink receives flushed log records in beat order.
type Sink interface {
	Write(records []Record) error
	Close() error
}

// TextSink writes the column header followed by one line per beat, columns
// separated by four spaces.
type TextSink struct {
	w io.Writer
	c io.Closer
}

var _ Sink = (*TextSink)(nil)

const sep = "    "

// NewTextSink writes the header to w and returns the sink. If w is an
// io.Closer it is closed with the sink.
func NewTextSink(w io.Writer) (*TextSink, error) {
	s := &TextSink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	if _, err := io.WriteString(w, strings.Join(state.Columns[:], sep)+"\n"); err != nil {
		return nil, fmt.Errorf("heartbeat: write log header: %w", err)
	}
	return s, nil
}

// OpenTextLog creates (or truncates) path and returns a TextSink writing to it.
func OpenTextLog(path string) (*TextSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: open log: %w", err)
	}
	s, err := NewTextSink(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *TextSink) Write(records []Record) error {
	bw := bufio.NewWriter(s.w)
	for _, r := range records {
		fmt.Fprintf(bw, "%d%s%d%s%d", r.Beat, sep, r.Tag, sep, r.Timestamp)
		for _, v := range r.Metrics() {
			fmt.Fprintf(bw, "%s%f", sep, v)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("heartbeat: write log: %w", err)
	}
	return nil
}

func (s *TextSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// CSVSink writes the same twelve columns as CSV.
type CSVSink struct {
	w *csv.Writer
	c io.Closer
}

var _ Sink = (*CSVSink)(nil)

// NewCSVSink writes the header row to w and returns the sink.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	if err := s.w.Write(state.Columns[:]); err != nil {
		return nil, fmt.Errorf("heartbeat: write csv header: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return nil, fmt.Errorf("heartbeat: write csv header: %w", err)
	}
	return s, nil
}

func (s *CSVSink) Write(records []Record) error {
	row := make([]string, len(state.Columns))
	for _, r := range records {
		row[0] = strconv.FormatInt(r.Beat, 10)
		row[1] = strconv.Itoa(r.Tag)
		row[2] = strconv.FormatInt(r.Timestamp, 10)
		for i, v := range r.Metrics() {
			row[3+i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := s.w.Write(row); err != nil {
			return fmt.Errorf("heartbeat: write csv: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
