// wrap.go - Greedy word wrap against measured text width.
package render

import "strings"

// Measurer returns the advance width of text in pixels for one face.
type Measurer interface {
	Measure(text string) float64
}

// FaceSource provides measurers for a font family at a pixel size.
type FaceSource interface {
	Measurer(family string, size float64) (Measurer, error)
}

// WrapText breaks text into lines that each fit within maxWidth, splitting
// only at spaces. A word wider than maxWidth is emitted on its own line.
func WrapText(text string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	currentLine := words[0]
	for _, word := range words[1:] {
		testLine := currentLine + " " + word
		if m.Measure(testLine) > maxWidth {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine = testLine
		}
	}
	lines = append(lines, currentLine)

	return lines
}

// WrapAll wraps each text and concatenates the results in order.
func WrapAll(texts []string, maxWidth float64, m Measurer) []string {
	var lines []string
	for _, t := range texts {
		lines = append(lines, WrapText(t, maxWidth, m)...)
	}
	return lines
}
