// Package logview follows the JSON log files and prints their entries in a compact,
// colored form.
package logview

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

// Entry is one decoded log line
type Entry map[string]interface{}

// reserved keys are printed on the first line of an entry
var reserved = map[string]bool{"time": true, "level": true, "msg": true, "caller": true}

const timeLayout = "2006-01-02T15:04:05.000Z0700"

// ParseEntry decodes one JSON log line
func ParseEntry(line []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse log entry: %w", err)
	}
	return entry, nil
}

// Formatter renders entries for the terminal
type Formatter struct {
	time   lipgloss.Style
	levels map[string]lipgloss.Style
	key    lipgloss.Style
	plain  lipgloss.Style
}

func NewFormatter(w io.Writer) *Formatter {
	r := lipgloss.NewRenderer(w)
	return &Formatter{
		time: r.NewStyle().Foreground(lipgloss.Color("5")),
		levels: map[string]lipgloss.Style{
			"DEBUG": r.NewStyle().Foreground(lipgloss.Color("4")),
			"INFO":  r.NewStyle().Foreground(lipgloss.Color("2")),
			"WARN":  r.NewStyle().Foreground(lipgloss.Color("3")),
			"ERROR": r.NewStyle().Foreground(lipgloss.Color("1")),
		},
		key:   r.NewStyle().Foreground(lipgloss.Color("6")),
		plain: r.NewStyle(),
	}
}

// Format returns "time LEVEL message" followed by one indented line per extra field
func (f *Formatter) Format(entry Entry) string {
	timestamp, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)

	if t, err := time.Parse(timeLayout, timestamp); err == nil {
		timestamp = t.Format("06-01-02 15:04:05.000")
	}
	level = strings.ToUpper(level)
	style, ok := f.levels[level]
	if !ok {
		style = f.plain
	}

	var b strings.Builder
	b.WriteString(f.time.Render(timestamp))
	b.WriteString(" ")
	b.WriteString(style.Render(fmt.Sprintf("%-5s", level)))
	b.WriteString(" ")
	b.WriteString(msg)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n    %s %v", f.key.Render(k+":"), entry[k])
	}
	return b.String()
}

// Tailer prints new entries of every *.log file in a directory
type Tailer struct {
	dir       string
	filter    string
	out       io.Writer
	formatter *Formatter
	positions map[string]int64
}

// NewTailer creates a Tailer. Entries not containing filter (case insensitive) are skipped.
func NewTailer(dir, filter string, out io.Writer) *Tailer {
	return &Tailer{
		dir:       dir,
		filter:    strings.ToLower(filter),
		out:       out,
		formatter: NewFormatter(out),
		positions: make(map[string]int64),
	}
}

// Scan prints the entries appended since the previous scan
func (t *Tailer) Scan() error {
	files, err := filepath.Glob(filepath.Join(t.dir, "*.log"))
	if err != nil {
		return fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(files)
	for _, path := range files {
		if err := t.scanFile(path); err != nil {
			fmt.Fprintf(t.out, "Error reading %s: %v\n", filepath.Base(path), err)
		}
	}
	return nil
}

func (t *Tailer) scanFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	pos, known := t.positions[path]
	if !known {
		fmt.Fprintf(t.out, "New log file detected: %s\n", filepath.Base(path))
	}
	if stat.Size() < pos {
		fmt.Fprintf(t.out, "%s has been truncated, starting from beginning\n", filepath.Base(path))
		pos = 0
	}
	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			// an unterminated line is read again once complete
			break
		}
		if err != nil {
			return err
		}
		pos += int64(len(line))
		entry, err := ParseEntry(line)
		if err != nil {
			fmt.Fprintln(t.out, err)
			continue
		}
		formatted := t.formatter.Format(entry)
		if t.filter == "" || strings.Contains(strings.ToLower(formatted), t.filter) {
			fmt.Fprintln(t.out, formatted)
		}
	}
	t.positions[path] = pos
	return nil
}

// Run scans once, then again whenever a log file in the directory changes, until ctx is done
func (t *Tailer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(t.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", t.dir, err)
	}

	if err := t.Scan(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".log" || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := t.Scan(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(t.out, "Watch error: %v\n", err)
		}
	}
}
