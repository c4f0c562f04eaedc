package quiz

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	submitURLRe = regexp.MustCompile(`https?://[^\s<>"]+/submit[^\s<>"]*`)
	csvHrefRe   = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']*\.csv[^"']*)["']`)
	csvURLRe    = regexp.MustCompile(`https?://[^\s\]<>"']+\.csv`)
	pdfURLRe    = regexp.MustCompile(`(?i)https?://[^\s\]<>"']+\.pdf`)
	originRe    = regexp.MustCompile(`https?://[^/\s]+`)
	cutoffRe    = regexp.MustCompile(`(?i)cutoff[:\s]+(\d+)`)
)

// ExtractSubmitURL procura frases como "Post your answer to https://x/submit".
// Retorna "" quando nada casa.
func ExtractSubmitURL(text string) string {
	m := submitURLRe.FindString(text)
	return strings.TrimRight(m, ".,;:")
}

// FindCSVURL prefere um href no HTML; referências relativas são resolvidas
// contra a origem base. Sem href, usa a primeira URL absoluta .csv do texto.
func FindCSVURL(html, text, base string) (string, error) {
	if m := csvHrefRe.FindStringSubmatch(html); m != nil {
		ref := m[1]
		if strings.HasPrefix(ref, "http") {
			return ref, nil
		}
		return JoinOrigin(base, ref), nil
	}
	if m := csvURLRe.FindString(text); m != "" {
		return m, nil
	}
	return "", ErrNoCSVURL
}

func FindPDFURL(text string) (string, error) {
	if m := pdfURLRe.FindString(text); m != "" {
		return m, nil
	}
	return "", ErrNoPDFURL
}

// BaseURL devolve o primeiro "scheme://host" encontrado no texto.
func BaseURL(text, fallback string) string {
	if m := originRe.FindString(text); m != "" {
		return m
	}
	return fallback
}

// Origin extrai "scheme://host" de uma URL absoluta.
func Origin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

// JoinOrigin junta base e ref com exatamente uma barra entre eles.
func JoinOrigin(base, ref string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// Cutoff lê "cutoff: N" do enunciado. Um N fora de int64 é ErrOverflow, não
// ausência de cutoff.
func Cutoff(text string) (int64, bool, error) {
	m := cutoffRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cutoff %q: %w", m[1], ErrOverflow)
	}
	return v, true, nil
}

// SumDigits soma as linhas compostas só por dígitos ASCII. Com cutoff, apenas
// valores estritamente maiores entram na soma. Retorna (soma, linhas numéricas).
// Linha ou soma acima de math.MaxInt64 é ErrOverflow.
func SumDigits(text string, cutoff int64, hasCutoff bool) (int64, int, error) {
	var sum int64
	n := 0
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if !isDigits(line) {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return 0, n, fmt.Errorf("value %q: %w", Preview(line, 24), ErrOverflow)
		}
		n++
		if hasCutoff && v <= cutoff {
			continue
		}
		if sum > math.MaxInt64-v {
			return 0, n, fmt.Errorf("sum after %d values: %w", n, ErrOverflow)
		}
		sum += v
	}
	return sum, n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Preview corta s em n bytes para log.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
