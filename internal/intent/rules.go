package intent

import (
	"regexp"
	"slices"
	"strings"

	"terminator/internal/nlu"
)

var (
	openPrefixes  = []string{"open ", "launch ", "start "}
	imageMarkers  = []string{"generate an image of", "create an image of", "generate image of", "create image of", "draw a picture of"}
	messageMarker = []string{"send a whatsapp message", "send a telegram message", "send a message"}
	noteCommands  = []string{"take a note", "take note", "write a note", "write note", "make a note"}

	exitPhrases     = []string{"exit", "quit", "goodbye", "good bye", "shutdown assistant", "shut down assistant"}
	powerOffPhrases = []string{"shut down", "shutdown", "power off", "turn off"}
	rebootPhrases   = []string{"restart", "reboot"}
	logOffPhrases   = []string{"log off", "logout", "log out", "sign out"}

	pausePhrases  = []string{"pause", "pause music", "pause the music"}
	resumePhrases = []string{"resume", "resume music", "resume the music", "continue music"}
	stopPhrases   = []string{"stop", "stop music", "stop the music"}

	volumeUp   = []string{"volume up", "increase volume", "increase the volume", "raise the volume", "turn up the volume", "louder"}
	volumeDown = []string{"volume down", "decrease volume", "decrease the volume", "lower the volume", "turn down the volume", "quieter"}
)

// table is the rule list in priority order. Order matters: the first match
// wins and the last rule accepts anything.
func (d *Dispatcher) table() []Rule {
	return []Rule{
		{Name: "weather", Match: isWeather, Handle: d.weather},
		{Name: "open_app", Match: prefixed(openPrefixes...), Handle: d.openApp},
		{Name: "generate_image", Match: contains(imageMarkers...), Handle: d.generateImage},
		{Name: "email", Match: isEmail, Handle: d.email},
		{Name: "message", Match: contains(messageMarker...), Handle: d.message},
		{Name: "device", Match: isSwitch, Handle: d.device},
		{Name: "reminder", Match: isReminder, Handle: d.reminder},
		{Name: "wikipedia", Match: isWikipedia, Handle: d.wikipedia},
		{Name: "window", Match: lemmas("minimize", "maximize", "close"), Handle: d.window},
		{Name: "exit", Match: exact(exitPhrases...), Handle: d.exit},
		{Name: "power", Match: exact(slices.Concat(powerOffPhrases, rebootPhrases, logOffPhrases)...), Handle: d.power},
		{Name: "play", Match: prefixed("play "), Handle: d.play},
		{Name: "pause", Match: exact(pausePhrases...), Handle: d.pause},
		{Name: "resume", Match: exact(resumePhrases...), Handle: d.resume},
		{Name: "stop", Match: exact(stopPhrases...), Handle: d.stop},
		{Name: "battery", Match: tokens("battery"), Handle: d.battery},
		{Name: "cpu", Match: isCPU, Handle: d.cpu},
		{Name: "ram", Match: tokens("ram", "memory"), Handle: d.ram},
		{Name: "system_info", Match: isSystemInfo, Handle: d.systemInfo},
		{Name: "screenshot", Match: contains("screenshot", "screen shot"), Handle: d.screenshot},
		{Name: "joke", Match: tokens("joke", "jokes"), Handle: d.joke},
		{Name: "note", Match: prefixed("note "), Handle: d.saveNote},
		{Name: "take_note", Match: contains(noteCommands...), Handle: d.takeNote},
		{Name: "clipboard", Match: tokens("clipboard"), Handle: d.clipboard},
		{Name: "volume_up", Match: contains(volumeUp...), Handle: d.volumeUp},
		{Name: "volume_down", Match: contains(volumeDown...), Handle: d.volumeDown},
		{Name: "mute", Match: tokens("mute", "unmute"), Handle: d.mute},
		{Name: "news", Match: tokens("news", "headlines"), Handle: d.news},
		{Name: "time", Match: tokens("time"), Handle: d.tellTime},
		{Name: "date", Match: isDate, Handle: d.tellDate},
		{Name: "web_search", Match: func(Request) bool { return true }, Handle: d.webSearch},
	}
}

func tokens(words ...string) func(Request) bool {
	return func(r Request) bool { return nlu.HasToken(r.Text, words...) }
}

func lemmas(words ...string) func(Request) bool {
	return func(r Request) bool { return nlu.HasLemma(r.Text, words...) }
}

func contains(subs ...string) func(Request) bool {
	return func(r Request) bool { return nlu.ContainsAny(r.Text, subs...) }
}

func prefixed(prefixes ...string) func(Request) bool {
	return func(r Request) bool {
		_, ok := nlu.HasPrefixAny(r.Text, prefixes...)
		return ok
	}
}

func exact(phrases ...string) func(Request) bool {
	return func(r Request) bool { return slices.Contains(phrases, r.Text) }
}

// isWeather leaves "open weather" to the launcher.
func isWeather(r Request) bool {
	if nlu.ContainsAny(r.Text, "weather in", "weather for") {
		return true
	}
	_, open := nlu.HasPrefixAny(r.Text, openPrefixes...)
	return !open && nlu.HasToken(r.Text, "weather")
}

func isEmail(r Request) bool {
	return nlu.ContainsAny(r.Text, "send an email") || nlu.HasToken(r.Text, "email")
}

func isReminder(r Request) bool {
	return nlu.HasLemma(r.Text, "remind", "set") && nlu.ContainsAny(r.Text, "reminder", "remind")
}

func isWikipedia(r Request) bool {
	return nlu.HasLemma(r.Text, "tell", "who", "what") && nlu.HasToken(r.Text, "about")
}

func isCPU(r Request) bool {
	return nlu.HasToken(r.Text, "cpu", "processor") && nlu.HasToken(r.Text, "usage", "percent", "load")
}

func isSystemInfo(r Request) bool {
	return nlu.ContainsAny(r.Text, "system info") ||
		nlu.HasToken(r.Text, "system") && nlu.HasToken(r.Text, "information", "status")
}

func isDate(r Request) bool {
	return nlu.HasToken(r.Text, "date") || nlu.ContainsAny(r.Text, "what day is")
}

var (
	switchOnFirst = regexp.MustCompile(`^(?:please )?(?:turn|switch) (on|off) (?:the )?(.+)$`)
	switchOnLast  = regexp.MustCompile(`^(?:please )?(?:turn|switch) (?:the )?(.+) (on|off)$`)
)

// parseSwitch reads "turn on the lamp" and "switch the lamp off".
func parseSwitch(text string) (device string, on, ok bool) {
	if m := switchOnFirst.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2]), m[1] == "on", true
	}
	if m := switchOnLast.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), m[2] == "on", true
	}
	return "", false, false
}

func isSwitch(r Request) bool {
	_, _, ok := parseSwitch(r.Text)
	return ok
}

// afterLemma returns the words of text following the first word that shares
// a stem with lemma. "closing the firefox" -> "the firefox".
func afterLemma(text, lemma string) string {
	want := nlu.Lemma(lemma)
	words := strings.Fields(text)
	for i, w := range words {
		if nlu.Lemma(nlu.NormalizeName(w)) == want {
			return strings.Join(words[i+1:], " ")
		}
	}
	return ""
}

// rawArgument drops the first word of the command as spoken, keeping the
// user's casing for the rest.
func rawArgument(raw string) string {
	words := strings.Fields(raw)
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words[1:], " ")
}

// afterAny returns the text after the first marker text contains.
func afterAny(text string, markers ...string) string {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return nlu.After(text, m)
		}
	}
	return ""
}
