package nlu

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// dayRe matches the part of a time expression that names a day.
var dayRe = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|tmr|yesterday|last|next|ago|` +
	`(mon|tue|wed|thu|fri|sat|sun)[a-z]*|` +
	`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*|\d{1,2}(st|nd|rd|th)|\d{1,2}[/.-]\d{1,2})\b`)

// ParseTime extracts the first time expression from text relative to now.
// A bare clock time already past today is moved to the next day, so "at 7
// am" said in the evening means tomorrow morning. An expression naming a day
// is returned as parsed even when it lies in the past. The matched
// expression is returned so callers can strip it from the text.
func ParseTime(text string, now time.Time) (time.Time, string, bool) {
	r, err := parser.Parse(text, now)
	if err != nil || r == nil {
		return time.Time{}, "", false
	}

	expr := strings.TrimSpace(r.Text)
	t := r.Time
	if dayRe.MatchString(expr) {
		return t, expr, true
	}
	for i := 0; !t.After(now) && i < 2; i++ {
		t = t.Add(24 * time.Hour)
	}
	if !t.After(now) {
		return time.Time{}, "", false
	}
	return t, expr, true
}

var reminderLeads = []string{
	"set a reminder to", "set a reminder for", "set a reminder", "set reminder to",
	"set reminder", "remind me to", "remind me about", "remind me", "reminder to", "reminder",
}

// ReminderMessage strips the time expression and the leading "remind me to"
// phrasing from a reminder command. If nothing is left the whole command is
// used as the message.
func ReminderMessage(text, timeExpr string) string {
	msg := text
	if timeExpr != "" {
		msg = strings.Replace(msg, timeExpr, "", 1)
	}
	msg = strings.Join(strings.Fields(msg), " ")
	for _, lead := range reminderLeads {
		if rest, ok := strings.CutPrefix(msg, lead); ok {
			msg = strings.TrimSpace(rest)
			break
		}
	}
	msg = strings.TrimSpace(strings.TrimSuffix(msg, " at"))
	if msg == "" {
		return text
	}
	return msg
}
