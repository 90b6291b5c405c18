// Package summary renders a human-readable breakdown of a decoded upstream
// DNS response and mirrors it to a JSON file, for operators inspecting
// forwarder traffic. It never affects the forwarding path: every failure
// here is logged and swallowed.
package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/quietloop/dnsfwd/internal/dns/common/log"
	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// DefaultPath is where the sink overwrites its JSON mirror on every
// successful decode, unless a caller configures a different path.
const DefaultPath = "output.json"

// Sink records a decoded message for operator visibility.
type Sink interface {
	Record(msg domain.Message)
}

// entry is one record line in a rendered section.
type entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"resource_size,omitempty"`
}

// report is the JSON shape written to the sink's output file.
type report struct {
	Question   []entry `json:"question"`
	Answer     []entry `json:"answer"`
	Authority  []entry `json:"authority"`
	Additional []entry `json:"additional"`
}

// FileSink prints a bracketed summary to stdout and overwrites a JSON file
// at path with the same breakdown, per sec. 4.6.
type FileSink struct {
	path   string
	logger log.Logger
}

// NewFileSink returns a sink that overwrites path on every Record call.
// An empty path selects DefaultPath.
func NewFileSink(path string, logger log.Logger) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{path: path, logger: logger}
}

var _ Sink = (*FileSink)(nil)

// Record prints the bracketed breakdown of msg and best-effort overwrites
// the JSON mirror file. Write failures are logged, never returned.
func (s *FileSink) Record(msg domain.Message) {
	rep := buildReport(msg)

	fmt.Println(renderText(rep))

	data, err := json.MarshalIndent(rep, "", "    ")
	if err != nil {
		s.logger.Warn(map[string]any{"error": err.Error()}, "summary: failed to marshal report")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Warn(map[string]any{"error": err.Error(), "path": s.path}, "summary: failed to write report file")
	}
}

func buildReport(msg domain.Message) report {
	questions := make([]entry, 0, len(msg.Questions))
	for _, q := range msg.Questions {
		questions = append(questions, entry{Name: q.Name.String(), Type: q.Type.String()})
	}
	additional := recordEntries(msg.Additional)
	if msg.OPT != nil {
		additional = append(additional, entry{
			Name: domain.RootName.String(),
			Type: domain.RRTypeOPT.String(),
			Size: len(msg.OPT.RData),
		})
	}
	return report{
		Question:   questions,
		Answer:     recordEntries(msg.Answers),
		Authority:  recordEntries(msg.Authority),
		Additional: additional,
	}
}

func recordEntries(records []domain.Record) []entry {
	entries := make([]entry, 0, len(records))
	for _, rr := range records {
		entries = append(entries, entry{
			Name: rr.Name.String(),
			Type: rr.Type.String(),
			Size: len(rr.RData),
		})
	}
	return entries
}

func renderText(rep report) string {
	var b strings.Builder
	b.WriteString("\n=START===============\n")
	writeSection(&b, "Questions", rep.Question)
	writeSection(&b, "Answer RRs", rep.Answer)
	writeSection(&b, "Authority RRs", rep.Authority)
	writeSection(&b, "Additional RRs", rep.Additional)
	b.WriteString("==============END=\n")
	return b.String()
}

func writeSection(b *strings.Builder, title string, entries []entry) {
	fmt.Fprintf(b, "%s (%d):\n", title, len(entries))
	if len(entries) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, e := range entries {
		if e.Size > 0 {
			fmt.Fprintf(b, "  - Name: %s, Type: %s (%d bytes)\n", e.Name, e.Type, e.Size)
		} else {
			fmt.Fprintf(b, "  - Name: %s, Type: %s\n", e.Name, e.Type)
		}
	}
}
