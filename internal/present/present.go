// Package present renders cached portfolios and positions for people.
package present

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"

	"gfinance/internal/models"
)

// Format selects how a rendering is written.
type Format string

const (
	// FormatMarkdown writes the Markdown source.
	FormatMarkdown Format = "markdown"
	// FormatTerminal styles the Markdown for a color terminal.
	FormatTerminal Format = "terminal"
	// FormatPlain lays the Markdown out for a terminal without styling.
	FormatPlain Format = "plain"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatMarkdown, FormatTerminal, FormatPlain:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q, want markdown, terminal or plain", s)
}

// Render writes markdown to w in format f.
func Render(w io.Writer, markdown string, f Format) error {
	var style string
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, markdown)
		return err
	case FormatTerminal:
		style = "dark"
	case FormatPlain:
		style = "notty"
	default:
		return fmt.Errorf("unknown format %q", f)
	}

	out, err := glamour.Render(markdown, style)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// WritePortfolios writes the list of portfolios.
func WritePortfolios(w io.Writer, portfolios []*models.Portfolio, f Format) error {
	return Render(w, PortfoliosMarkdown(portfolios), f)
}

// WritePortfolio writes one portfolio with its metrics and cached positions.
func WritePortfolio(w io.Writer, p *models.Portfolio, f Format) error {
	return Render(w, PortfolioMarkdown(p), f)
}

// WritePosition writes one position with its data.
func WritePosition(w io.Writer, pos *models.Position, f Format) error {
	return Render(w, PositionMarkdown(pos), f)
}

// PortfoliosMarkdown summarizes portfolios in one table.
func PortfoliosMarkdown(portfolios []*models.Portfolio) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolios")
	if len(portfolios) == 0 {
		doc.PlainText("No portfolios cached.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Title", "Currency", "Updated", "Positions", "Metrics"},
		Rows:   [][]string{},
	}
	for _, p := range portfolios {
		table.Rows = append(table.Rows, []string{
			p.Title,
			p.CurrencyCode,
			formatTime(p.Updated),
			strconv.Itoa(len(p.Positions)),
			strconv.Itoa(len(p.Metrics)),
		})
	}
	doc.Table(table)

	return doc.String()
}

// PortfolioMarkdown renders a portfolio: its links, metrics sorted by name,
// then its cached positions sorted by symbol.
func PortfolioMarkdown(p *models.Portfolio) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(p.Title)
	doc.BulletList(
		"Last Updated: "+formatTime(p.Updated),
		"Currency: "+p.CurrencyCode,
		"Link to feed: "+p.FeedLink,
	)

	if len(p.Metrics) > 0 {
		doc.H2("Metrics")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft},
			Header:    []string{"Metric", "Value", "Currency"},
			Rows:      [][]string{},
		}
		for _, name := range sortedKeys(p.Metrics) {
			m := p.Metrics[name]
			table.Rows = append(table.Rows, []string{name, formatNumber(m.Value), m.CurrencyCode})
		}
		doc.Table(table)
	}

	if len(p.Positions) > 0 {
		doc.H2("Positions")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Symbol", "Exchange", "Name", "Shares"},
			Rows:      [][]string{},
		}
		for _, symbol := range sortedKeys(p.Positions) {
			pos := p.Positions[symbol]
			shares := ""
			if v, ok := pos.Data["shares"]; ok {
				shares = formatNumber(v)
			}
			table.Rows = append(table.Rows, []string{pos.Symbol, pos.Exchange, pos.FullName, shares})
		}
		doc.Table(table)
	}

	return doc.String()
}

// PositionMarkdown renders a position with its numeric data sorted by name.
func PositionMarkdown(pos *models.Position) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	heading := pos.Symbol
	if pos.Exchange != "" {
		heading = pos.Exchange + ":" + pos.Symbol
	}
	if pos.Title != "" {
		heading += " - " + pos.Title
	}
	doc.H1(heading)
	doc.BulletList(
		"Last Updated: "+formatTime(pos.Updated),
		"Link to feed: "+pos.FeedLink,
		"Link: "+pos.SelfLink,
	)

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"Field", "Value", "Currency"},
		Rows:      [][]string{},
	}
	for _, name := range sortedKeys(pos.Data) {
		table.Rows = append(table.Rows, []string{name, formatNumber(pos.Data[name]), ""})
	}
	for _, name := range sortedKeys(pos.Money) {
		m := pos.Money[name]
		table.Rows = append(table.Rows, []string{name, formatNumber(m.Value), m.CurrencyCode})
	}
	if len(table.Rows) > 0 {
		doc.Table(table)
	}

	return doc.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
