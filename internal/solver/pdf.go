package solver

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText extrai o texto de cada página no formato "\n--- Page N ---\n<texto>".
func PDFText(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", n, fmt.Errorf("pdf page %d: %w", i, err)
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s", i, text)
	}
	return sb.String(), n, nil
}
