package knowledge

import (
	"bufio"
	"bytes"
	"strings"
)

// flattenTables rewrites Markdown table rows as standalone paragraphs, so a
// row like "| Fridge | 150 kWh/month |" becomes the fact
// "Fridge: 150 kWh/month". Header separator rows are dropped. Input without
// tables is returned unchanged.
func flattenTables(src []byte) []byte {
	if !bytes.Contains(src, []byte("|")) {
		return src
	}
	var b strings.Builder
	b.Grow(len(src))
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var header []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !(strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1) {
			header = nil
			b.WriteString(sc.Text())
			b.WriteByte('\n')
			continue
		}
		cells := splitRow(line)
		if isSeparator(cells) {
			continue
		}
		if header == nil {
			// first row of a table is its header
			header = cells
			continue
		}
		b.WriteString(rowFact(header, cells))
		b.WriteString("\n\n")
	}
	if sc.Err() != nil {
		return src
	}
	return []byte(b.String())
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}

// rowFact renders a row as "first: h2 v2, h3 v3".
func rowFact(header, cells []string) string {
	if len(cells) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cells)-1)
	for i := 1; i < len(cells); i++ {
		if cells[i] == "" {
			continue
		}
		if i < len(header) && header[i] != "" {
			parts = append(parts, header[i]+" "+cells[i])
		} else {
			parts = append(parts, cells[i])
		}
	}
	if len(parts) == 0 {
		return cells[0]
	}
	return cells[0] + ": " + strings.Join(parts, ", ")
}
