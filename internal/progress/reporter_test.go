package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf}

	r.Start(2, "Ingesting documents")
	r.Update(1, "notes.pdf")
	r.Update(2, "grades.csv")
	r.Finish("2 documents ingested")

	assert.Equal(t, "Ingesting documents (2)\n[1/2] notes.pdf\n[2/2] grades.csv\n2 documents ingested\n", buf.String())
}

type recorder struct {
	events []string
}

func (r *recorder) Start(total int, label string)      { r.events = append(r.events, "start") }
func (r *recorder) Update(current int, message string) { r.events = append(r.events, "update") }
func (r *recorder) Finish(summary string)              { r.events = append(r.events, "finish") }

func TestFunc(t *testing.T) {
	rec := &recorder{}
	fn := Func(rec, "Embedding chunks")

	fn(1, 2)
	fn(2, 2)
	fn(1, 1)

	assert.Equal(t, []string{"start", "update", "update", "finish", "start", "update", "finish"}, rec.events)
}

func TestTerminalReporterFinishWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{Out: &buf}
	r.Finish("done")
	assert.Equal(t, "done\n", buf.String())
}
