package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"schoolcore/internal/blob"
	"schoolcore/internal/core"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// message is a plain acknowledgement rendered for mutations without a record.
type message struct {
	Message string `json:"message"`
}

func (a *app) render(v any) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		return writeYAML(a.out, v)
	default:
		return writeTable(a.out, v)
	}
}

// writeYAML goes through JSON so field names and ordering match the JSON
// output, then restyles the flow nodes as block YAML.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeTable(w io.Writer, v any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(cols ...string) {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}
	switch val := v.(type) {
	case message:
		row(val.Message)
	case core.Student:
		return writeTable(w, []core.Student{val})
	case core.Instructor:
		return writeTable(w, []core.Instructor{val})
	case core.Course:
		return writeTable(w, []core.Course{val})
	case []core.Student:
		row("ID", "NAME", "AGE", "EMAIL")
		for _, s := range val {
			row(s.ID, s.Name, strconv.Itoa(s.Age), s.Email)
		}
	case []core.Instructor:
		row("ID", "NAME", "AGE", "EMAIL")
		for _, i := range val {
			row(i.ID, i.Name, strconv.Itoa(i.Age), i.Email)
		}
	case []core.Course:
		row("ID", "NAME", "INSTRUCTOR")
		for _, c := range val {
			row(c.ID, c.Name, deref(c.InstructorID))
		}
	case []core.CourseSummary:
		row("ID", "NAME", "INSTRUCTOR", "ENROLLED")
		for _, c := range val {
			row(c.ID, c.Name, deref(c.InstructorName), strconv.Itoa(c.EnrolledCount))
		}
	case core.SearchResult:
		fmt.Fprintf(w, "Students (%d)\n", len(val.Students))
		if err := writeTable(w, val.Students); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nInstructors (%d)\n", len(val.Instructors))
		if err := writeTable(w, val.Instructors); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nCourses (%d)\n", len(val.Courses))
		return writeTable(w, val.Courses)
	case blob.Info:
		return writeTable(w, []blob.Info{val})
	case []blob.Info:
		row("KEY", "SIZE", "MODIFIED")
		for _, b := range val {
			row(b.Key, strconv.FormatInt(b.Size, 10), b.LastModified.UTC().Format("2006-01-02 15:04:05"))
		}
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	return tw.Flush()
}

func deref(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}
