package cart

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wichananm65/blossom-storefront/internal/product"
)

var glyphs = map[product.Currency]string{
	product.USD:   "$",
	product.Naira: "₦",
	product.GBP:   "£",
}

// Symbol returns the currency glyph, or the upper-cased tag for an unknown one.
func Symbol(c product.Currency) string {
	if g, ok := glyphs[c]; ok {
		return g
	}
	return strings.ToUpper(string(c)) + " "
}

// FormatAmount renders amount with the currency glyph, thousands separators
// and two decimals, e.g. "$1,234.50".
func FormatAmount(amount decimal.Decimal, c product.Currency) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	fixed := amount.StringFixed(2)
	frac := fixed[strings.IndexByte(fixed, '.')+1:]
	whole := message.NewPrinter(language.English).Sprintf("%d", amount.Truncate(0).IntPart())
	return sign + Symbol(c) + whole + "." + frac
}

// FormatPrice renders the product price in currency c.
func FormatPrice(p product.Price, c product.Currency) string {
	return FormatAmount(p.In(c), c)
}
