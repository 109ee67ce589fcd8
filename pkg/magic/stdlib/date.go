package stdlib

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

func now(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	setResult(n, time.Now().UTC().Truncate(time.Millisecond))
	return nil
}

// formatDate renders the value with a Go layout, translating month and day
// names when a culture is given.
func formatDate(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	t, err := lambda.GetEx[time.Time](n)
	if err != nil {
		return err
	}
	layoutNode := child(n, "format")
	if err := requireChild(n.Name, layoutNode, "format"); err != nil {
		return err
	}
	layout, err := lambda.GetEx[string](layoutNode)
	if err != nil {
		return err
	}
	culture, err := optionalString(n, "culture")
	if err != nil {
		return err
	}
	if culture == "" {
		setResult(n, t.Format(layout))
		return nil
	}
	setResult(n, monday.Format(t, layout, mondayLocale(culture)))
	return nil
}

// parseDate parses common layouts. Ambiguous numeric dates are read month
// first unless the culture writes the day first.
func parseDate(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	s, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	culture, err := optionalString(n, "culture")
	if err != nil {
		return err
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC, dateparse.PreferMonthFirst(monthFirst(culture)))
	if err != nil {
		return perrors.New("TYPE-0004", map[string]any{
			"Actual": "'" + s + "'",
			"Type":   "date",
			"Reason": err.Error(),
		})
	}
	setResult(n, t.UTC().Truncate(time.Millisecond))
	return nil
}

func optionalString(n *lambda.Node, name string) (string, error) {
	c := child(n, name)
	if c == nil {
		return "", nil
	}
	return lambda.GetEx[string](c)
}

func normalizeCulture(culture string) string {
	return strings.ToLower(strings.ReplaceAll(culture, "-", "_"))
}

// monthFirst reports whether a culture writes 01/02 as January 2nd.
func monthFirst(culture string) bool {
	switch normalizeCulture(culture) {
	case "", "en", "en_us":
		return true
	default:
		return false
	}
}

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_pt": monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"nb":    monday.LocaleNbNO,
	"nb_no": monday.LocaleNbNO,
	"nn":    monday.LocaleNnNO,
	"nn_no": monday.LocaleNnNO,
	"sv":    monday.LocaleSvSE,
	"sv_se": monday.LocaleSvSE,
	"da":    monday.LocaleDaDK,
	"da_dk": monday.LocaleDaDK,
	"fi":    monday.LocaleFiFI,
	"fi_fi": monday.LocaleFiFI,
	"pl":    monday.LocalePlPL,
	"pl_pl": monday.LocalePlPL,
	"ru":    monday.LocaleRuRU,
	"ru_ru": monday.LocaleRuRU,
	"ja":    monday.LocaleJaJP,
	"ja_jp": monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_cn": monday.LocaleZhCN,
}

// mondayLocale maps a culture such as "nb-NO" to a monday locale, falling
// back to US English.
func mondayLocale(culture string) monday.Locale {
	if l, ok := mondayLocales[normalizeCulture(culture)]; ok {
		return l
	}
	return monday.LocaleEnUS
}
