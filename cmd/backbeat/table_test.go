package main

import (
	"strings"
	"testing"
)

func TestReportTableRendersHeaderAndRows(t *testing.T) {
	tbl := newReportTable("Artist", "Plays")
	tbl.addRow("Big Name", "12345")
	tbl.addRow("Short") // short row pads out to the header width
	out := tbl.render()
	for _, want := range []string{"Artist", "Plays", "Big Name", "12345", "Short"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestReportTableRightAlignsNumericColumns(t *testing.T) {
	tbl := newReportTable("Plays")
	tbl.rightAlign(1)
	tbl.addRow("12345")
	tbl.addRow("7")
	out := tbl.render()
	if !strings.Contains(out, "    7") {
		t.Errorf("single digit not right-aligned in column:\n%s", out)
	}
}
