// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loganalyzer searches and summarizes training run logs.
package loganalyzer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	// LogExt is the extension of files Scan reads.
	LogExt = ".log"

	maxParallelScans = 4
	maxLineBytes     = 1 << 20
)

// FileMatches holds the matching lines of one log file in file order.
type FileMatches struct {
	File  string   `json:"file"`
	Lines []string `json:"lines"`
}

// Compile builds the line matcher for pattern. Matches are anchored at the
// start of the line and may end anywhere.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return re, nil
}

// Scan reads every *.log file directly inside dir and collects the lines
// matching pattern. Results are sorted by file name; files without a match
// are left out.
func Scan(ctx context.Context, dir, pattern string) ([]FileMatches, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == LogExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	found := make([][]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelScans)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines, err := scanFile(filepath.Join(dir, name), re)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			found[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []FileMatches
	matched := 0
	for i, lines := range found {
		if len(lines) == 0 {
			continue
		}
		matched += len(lines)
		out = append(out, FileMatches{File: names[i], Lines: lines})
	}
	metrics.RecordLogScan(len(names), matched)

	logger := xglog.WithComponentFromContext(ctx, "loganalyzer")
	logger.Debug().
		Str(xglog.FieldEvent, "loganalyzer.scanned").
		Str(xglog.FieldDir, dir).
		Int("files", len(names)).
		Int("matched", matched).
		Msg("log scan finished")
	return out, nil
}

func scanFile(path string, re *regexp.Regexp) ([]string, error) {
	// #nosec G304 -- path is a directory entry of the requested log dir
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return MatchLines(f, re)
}

// MatchLines returns the lines of r that re matches, without line endings.
// Over-long lines are matched and returned truncated.
func MatchLines(r io.Reader, re *regexp.Regexp) ([]string, error) {
	var lines []string
	err := eachLine(r, func(line string) {
		line = strings.TrimSuffix(line, "\r")
		if re.MatchString(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// eachLine calls fn for every line of r without its line ending. Lines longer
// than maxLineBytes are cut to that length; the rest of such a line is read
// and dropped.
func eachLine(r io.Reader, fn func(line string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if room := maxLineBytes - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if isPrefix {
			continue
		}
		fn(string(buf))
		buf = buf[:0]
	}
}

// WriteReport writes each file's matches as a group: a blank line, the file
// name, then the matching lines.
func WriteReport(w io.Writer, results []FileMatches) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if _, err := fmt.Fprintf(bw, "\n%s\n", r.File); err != nil {
			return err
		}
		for _, line := range r.Lines {
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
