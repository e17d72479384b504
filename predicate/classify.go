/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package predicate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type inferred for a raw search term.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDateTime:
		return "datetime"
	default:
		return "text"
	}
}

// Term is a classified search term.
type Term struct {
	Raw    string
	Kind   Kind
	Number float64
	Time   time.Time
}

// Plain decimal notation: optional sign, optional thousands separators, no
// exponent. Integers are a subset.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+|\d{1,3}(,\d{3})+)?(\.\d+)?$`)

// Layouts tried in order when a term is not a number. Layouts without a zone
// are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// Classify infers the kind of raw by trial parsing: number first, then
// date-time, otherwise free text.
func Classify(raw string) Term {
	s := strings.TrimSpace(raw)
	if n, ok := parseNumber(s); ok {
		return Term{Raw: raw, Kind: KindNumber, Number: n}
	}
	if t, ok := parseDateTime(s); ok {
		return Term{Raw: raw, Kind: KindDateTime, Time: t}
	}
	return Term{Raw: raw, Kind: KindText}
}

func parseNumber(s string) (float64, bool) {
	if s == "" || !strings.ContainsAny(s, "0123456789") || !numberPattern.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
