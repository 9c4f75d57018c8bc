package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Formatter prints diagnostics with the source lines they point at:
//
//	error[SEM_UNDEFINED_NAME]: undefined name `y`
//	  --> main.gul:2:7
//	   |
//	 1 | let x = 1
//	 2 | print(y)
//	   |       ^
//	   |
//	help: did you mean `x`?
type Formatter struct {
	w       io.Writer
	sources map[string][]string
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w, sources: make(map[string][]string)}
}

// AddSource registers the text of filename. Files not registered are read
// from disk on first use.
func (f *Formatter) AddSource(filename, src string) {
	f.sources[filename] = strings.Split(src, "\n")
}

func (f *Formatter) lines(filename string) []string {
	if filename == "" {
		return nil
	}
	if lines, ok := f.sources[filename]; ok {
		return lines
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		f.sources[filename] = nil
		return nil
	}
	f.AddSource(filename, string(data))
	return f.sources[filename]
}

// FormatAll formats list in order with a blank line between entries.
func (f *Formatter) FormatAll(list List) {
	for i, d := range list {
		if i > 0 {
			fmt.Fprintln(f.w)
		}
		f.Format(d)
	}
}

func (f *Formatter) Format(d Diagnostic) {
	head := string(d.severity())
	if d.Code != "" {
		head += "[" + string(d.Code) + "]"
	}
	fmt.Fprintf(f.w, "%s: %s\n", head, d.Message)

	labels := d.Labels
	if len(labels) == 0 && d.Span.Known() {
		labels = []Label{{Span: d.Span}}
	}
	if len(labels) > 0 {
		fmt.Fprintf(f.w, "  --> %s\n", labels[0].Span)
		f.snippet(labels)
	} else if d.Span.Known() {
		fmt.Fprintf(f.w, "  --> %s\n", d.Span)
	}
	if d.Help != "" {
		fmt.Fprintf(f.w, "help: %s\n", d.Help)
	}
}

// snippet prints the lines covered by labels of the first label's file,
// with one line of context on each side.
func (f *Formatter) snippet(labels []Label) {
	file := labels[0].Span.Filename
	lines := f.lines(file)
	byLine := make(map[int][]Label)
	first, last := 0, 0
	for _, l := range labels {
		n := l.Span.Line
		if l.Span.Filename != file || n < 1 || n > len(lines) {
			continue
		}
		byLine[n] = append(byLine[n], l)
		if first == 0 || n < first {
			first = n
		}
		last = max(last, n)
	}
	if len(byLine) == 0 {
		return
	}

	from, to := max(1, first-1), min(len(lines), last+1)
	pad := strings.Repeat(" ", len(strconv.Itoa(to)))
	fmt.Fprintf(f.w, " %s |\n", pad)
	for n := from; n <= to; n++ {
		text := strings.ReplaceAll(lines[n-1], "\t", "    ")
		fmt.Fprintf(f.w, " %*d | %s\n", len(pad), n, text)
		if marks := underline(text, byLine[n]); marks != "" {
			fmt.Fprintf(f.w, " %s | %s\n", pad, marks)
		}
	}
	fmt.Fprintf(f.w, " %s |\n", pad)
}

// underline marks primary labels with ^ and secondary ones with ~, then
// appends the label texts. Primary marks win where labels overlap.
func underline(text string, labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Span.Column < labels[j].Span.Column })

	marks := []rune(strings.Repeat(" ", len([]rune(text))+1))
	var texts []string
	for _, l := range labels {
		ch := '^'
		if l.Secondary {
			ch = '~'
		}
		start := max(0, l.Span.Column-1)
		for i := start; i < min(len(marks), start+l.Span.width()); i++ {
			if marks[i] == ' ' || ch == '^' {
				marks[i] = ch
			}
		}
		if l.Text != "" {
			texts = append(texts, l.Text)
		}
	}
	out := strings.TrimRight(string(marks), " ")
	if out != "" && len(texts) > 0 {
		out += " " + strings.Join(texts, "; ")
	}
	return out
}
