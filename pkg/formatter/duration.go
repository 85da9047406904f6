// Package formatter renders event durations as human readable phrases.
package formatter

import (
	"strconv"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Messages take the count twice: argument 1 selects the plural form, argument 2
// is the count as plain digits so large values are not grouped by locale.
const (
	minutesKey = "%[2]s minutes"
	hoursKey   = "%[2]s hours"
)

var (
	supported = []language.Tag{language.Russian, language.English}
	matcher   = language.NewMatcher(supported)
	messages  = buildCatalog()
	defaultRU = New(language.Russian)
)

// Formatter turns minute counts into localized "H hours M minutes" strings.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a formatter for the closest supported language. Unknown tags fall back to Russian.
func New(tag language.Tag) *Formatter {
	_, idx, _ := matcher.Match(tag)
	chosen := supported[idx]
	return &Formatter{tag: chosen, printer: message.NewPrinter(chosen, message.Catalog(messages))}
}

// ForLocale parses a BCP 47 locale such as "ru" or "en-US".
func ForLocale(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return New(language.Russian)
	}
	return New(tag)
}

// Language reports the language the formatter renders.
func (f *Formatter) Language() language.Tag {
	return f.tag
}

// Format describes durationInMinutes. Values below an hour yield only the minutes phrase,
// whole hours only the hours phrase. Negative input is treated as zero.
func (f *Formatter) Format(durationInMinutes int) string {
	if durationInMinutes < 0 {
		durationInMinutes = 0
	}
	hours := durationInMinutes / 60
	minutes := durationInMinutes % 60

	minutesString := f.printer.Sprintf(minutesKey, minutes, strconv.Itoa(minutes))
	if hours == 0 {
		return minutesString
	}
	hoursString := f.printer.Sprintf(hoursKey, hours, strconv.Itoa(hours))
	if minutes == 0 {
		return hoursString
	}
	return hoursString + " " + minutesString
}

// Format describes a duration in Russian.
func Format(durationInMinutes int) string {
	return defaultRU.Format(durationInMinutes)
}

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	mustSet(b, language.Russian, minutesKey, plural.Selectf(1, "%d",
		plural.One, "%[2]s минута",
		plural.Few, "%[2]s минуты",
		plural.Many, "%[2]s минут",
		plural.Other, "%[2]s минуты",
	))
	mustSet(b, language.Russian, hoursKey, plural.Selectf(1, "%d",
		plural.One, "%[2]s час",
		plural.Few, "%[2]s часа",
		plural.Many, "%[2]s часов",
		plural.Other, "%[2]s часа",
	))
	mustSet(b, language.English, minutesKey, plural.Selectf(1, "%d",
		plural.One, "%[2]s minute",
		plural.Other, "%[2]s minutes",
	))
	mustSet(b, language.English, hoursKey, plural.Selectf(1, "%d",
		plural.One, "%[2]s hour",
		plural.Other, "%[2]s hours",
	))
	return b
}

func mustSet(b *catalog.Builder, tag language.Tag, key string, msg catalog.Message) {
	if err := b.Set(tag, key, msg); err != nil {
		panic("formatter: invalid catalog entry " + key + ": " + err.Error())
	}
}
