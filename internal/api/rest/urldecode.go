package rest

import "strings"

// legacySubstitutions is the first firmware generation's decoding table,
// applied in order. It is deliberately incomplete and wrong in places:
// %30 and %31 become '*' and '+', %5F becomes '-', and %3A maps to ':'
// (the second %3A entry never matches).
var legacySubstitutions = []struct{ from, to string }{
	{"%20", " "},
	{"+", " "},
	{"%21", "!"},
	{"%22", "\""},
	{"%23", "#"},
	{"%24", "$"},
	{"%25", "%"},
	{"%26", "&"},
	{"%27", "'"},
	{"%28", "("},
	{"%29", ")"},
	{"%30", "*"},
	{"%31", "+"},
	{"%2C", ","},
	{"%2E", "."},
	{"%2F", "/"},
	{"%2C", ","},
	{"%3A", ":"},
	{"%3A", ";"},
	{"%3C", "<"},
	{"%3D", "="},
	{"%3E", ">"},
	{"%3F", "?"},
	{"%40", "@"},
	{"%5B", "["},
	{"%5C", "\\"},
	{"%5D", "]"},
	{"%5E", "^"},
	{"%5F", "-"},
	{"%60", "`"},
}

func legacyDecode(s string) string {
	for _, sub := range legacySubstitutions {
		s = strings.ReplaceAll(s, sub.from, sub.to)
	}
	return s
}

// rawQueryValue returns the undecoded value of the first occurrence of key.
func rawQueryValue(rawQuery, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}
