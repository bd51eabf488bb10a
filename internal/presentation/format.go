package presentation

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts for one display language.
type Formatter struct {
	printer *message.Printer
	group   string
	point   string
}

// NewFormatter builds a Formatter for a BCP 47 tag, falling back to English.
func NewFormatter(tag string) *Formatter {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.English
	}
	printer := message.NewPrinter(lang)
	group, point := separators(printer)
	return &Formatter{printer: printer, group: group, point: point}
}

// separators reads the locale's group and decimal marks off a known sample.
func separators(p *message.Printer) (group, point string) {
	sample := p.Sprint(number.Decimal(1234567.5, number.Scale(1)))
	one := strings.IndexRune(sample, '1')
	two := strings.IndexRune(sample, '2')
	seven := strings.IndexRune(sample, '7')
	five := strings.LastIndex(sample, "5")
	if one < 0 || two <= one+1 || five <= seven+1 {
		return ",", "."
	}
	return sample[one+1 : two], sample[seven+1 : five]
}

// Amount formats d with two decimals and digit grouping. Digits come from the
// decimal itself, so amounts beyond float64 precision stay exact.
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.localize(d.StringFixed(2))
}

// Money formats d followed by the ISO currency code.
func (f *Formatter) Money(d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return f.Amount(d)
	}
	return f.Amount(d) + " " + currency
}

// Percent formats a percentage with up to two decimals.
func (f *Formatter) Percent(d decimal.Decimal) string {
	return f.localize(d.Round(2).String()) + "%"
}

// Quantity formats an integer quantity with digit grouping.
func (f *Formatter) Quantity(q int64) string {
	return f.printer.Sprint(number.Decimal(q))
}

// localize regroups a plain decimal string such as "-1234567.50" with the
// locale's marks.
func (f *Formatter) localize(plain string) string {
	sign := ""
	if strings.HasPrefix(plain, "-") {
		sign, plain = "-", plain[1:]
	}
	whole, frac, _ := strings.Cut(plain, ".")

	var b strings.Builder
	b.WriteString(sign)
	lead := len(whole) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(whole[:lead])
	for i := lead; i < len(whole); i += 3 {
		b.WriteString(f.group)
		b.WriteString(whole[i : i+3])
	}
	if frac != "" {
		b.WriteString(f.point)
		b.WriteString(frac)
	}
	return b.String()
}
