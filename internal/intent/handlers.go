package intent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"terminator/internal/actions"
	"terminator/internal/nlu"
	"terminator/internal/ports"
)

const (
	promptTimeout = 10 * time.Second
	shortPhrase   = 8 * time.Second
	bodyTimeout   = 15 * time.Second
	bodyPhrase    = 20 * time.Second
)

func (d *Dispatcher) open(url string) {
	if d.deps.Browser == nil {
		d.logger.Warn("no browser to open url", "url", url)
		return
	}
	if err := d.deps.Browser.Open(url); err != nil {
		d.logger.Error("open url", "url", url, "err", err)
	}
}

func (d *Dispatcher) searchWeb(query string) {
	d.open(actions.SearchURL(query))
}

func (d *Dispatcher) weather(ctx context.Context, req Request) Outcome {
	if !d.usable(featWeather, d.deps.Weather != nil) {
		return cont()
	}

	city := afterAny(req.Text, "weather in", "weather for")
	if city == "" {
		city = d.deps.DefaultCity
	}
	if city == "" {
		city = d.ask(ctx, "Which city would you like the weather for?", promptTimeout, shortPhrase)
		if city == "" {
			d.say("I didn't get the city name.")
			return cont()
		}
	}

	rep, err := d.deps.Weather.Current(ctx, city)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		d.sayf("I couldn't find the weather for %s.", city)
	case err != nil:
		d.failed(featWeather, err, "I couldn't get the weather right now.")
	default:
		d.sayf("The weather in %s is %s with temperature %.0f degrees Celsius and humidity %d percent.",
			city, rep.Description, rep.TempC, rep.Humidity)
	}
	return cont()
}

func (d *Dispatcher) openApp(_ context.Context, req Request) Outcome {
	prefix, _ := nlu.HasPrefixAny(req.Text, openPrefixes...)
	name := strings.TrimSpace(strings.TrimPrefix(req.Text, prefix))
	if name == "" {
		d.say("Which application would you like me to open?")
		return cont()
	}
	d.logSystem("Open request: " + name)

	if d.deps.Apps != nil && d.deps.Launcher != nil {
		if path, ok := d.deps.Apps.Lookup(name); ok {
			if err := d.deps.Launcher.Launch(path); err != nil {
				d.logger.Error("launch", "name", name, "path", path, "err", err)
				d.sayf("I couldn't open %s.", name)
				return cont()
			}
			d.sayf("Opening %s.", name)
			return cont()
		}
	}

	if url, ok := actions.Site(name); ok {
		d.sayf("Opening %s.", name)
		d.open(url)
		return cont()
	}

	d.sayf("I couldn't find %s locally. I'll search online.", name)
	d.searchWeb(name)
	return cont()
}

func (d *Dispatcher) generateImage(ctx context.Context, req Request) Outcome {
	if !d.usable(featImages, d.deps.Images != nil) {
		return cont()
	}
	prompt := afterAny(req.Text, imageMarkers...)
	if prompt == "" {
		d.say("What should the image show? Say for example: generate an image of a red fox.")
		return cont()
	}

	d.sayf("Generating an image of %s. This may take a moment.", prompt)
	d.spawn(ctx, "generate_image", func(ctx context.Context) {
		url, err := d.deps.Images.Generate(ctx, prompt)
		if err != nil {
			d.failed(featImages, err, "I encountered an error while trying to generate the image.")
			return
		}
		d.open(url)
		d.say("I have generated and opened the image for you.")
	})
	return cont()
}

func (d *Dispatcher) email(ctx context.Context, _ Request) Outcome {
	if !d.usable(featEmail, d.deps.Mail != nil) {
		return cont()
	}

	const cancel = "I didn't get that. Canceling email."
	spoken := d.ask(ctx, "Who is the recipient?", promptTimeout, shortPhrase)
	if spoken == "" {
		d.say(cancel)
		return cont()
	}
	to := actions.Recipient(spoken)
	if !strings.Contains(to, "@") {
		d.sayf("%s is not an email address. Canceling email.", spoken)
		return cont()
	}

	subject := d.ask(ctx, fmt.Sprintf("The recipient is %s. What is the subject?", to), promptTimeout, shortPhrase)
	if subject == "" {
		d.say(cancel)
		return cont()
	}

	body := d.ask(ctx, "What should the email say?", bodyTimeout, bodyPhrase)
	if body == "" {
		d.say(cancel)
		return cont()
	}

	d.say("I am preparing to send the email now.")
	d.spawn(ctx, "email", func(ctx context.Context) {
		if err := d.deps.Mail.Send(ctx, to, subject, body); err != nil {
			d.failed(featEmail, err, "I encountered an error while trying to send the email.")
			return
		}
		d.sayf("Email sent successfully to %s.", to)
	})
	return cont()
}

func (d *Dispatcher) message(ctx context.Context, _ Request) Outcome {
	if !d.usable(featMessage, d.deps.Messenger != nil) {
		return cont()
	}

	contact := d.ask(ctx, "Who is the recipient?", promptTimeout, shortPhrase)
	if contact == "" {
		d.say("I didn't get the recipient's name. Canceling message.")
		return cont()
	}
	text := d.ask(ctx, "What is the message?", bodyTimeout, bodyPhrase)
	if text == "" {
		d.say("I didn't get the message. Canceling message.")
		return cont()
	}

	d.sayf("I will try to send a message to %s.", contact)
	d.spawn(ctx, "message", func(ctx context.Context) {
		err := d.deps.Messenger.Send(ctx, contact, text)
		switch {
		case errors.Is(err, ports.ErrNotFound):
			d.sayf("I don't have a contact named %s.", contact)
		case err != nil:
			d.failed(featMessage, err, "I couldn't send the message.")
		default:
			d.say("I have sent the message.")
		}
	})
	return cont()
}

func (d *Dispatcher) device(ctx context.Context, req Request) Outcome {
	name, on, _ := parseSwitch(req.Text)
	if !d.usable(featDevices, d.deps.Devices != nil) {
		return cont()
	}
	if !d.deps.Devices.Known(name) {
		d.sayf("I don't know a device called %s.", name)
		return cont()
	}

	state := "off"
	if on {
		state = "on"
	}
	if err := d.deps.Devices.Switch(ctx, name, on); err != nil {
		d.failed(featDevices, err, fmt.Sprintf("I couldn't turn %s the %s.", state, name))
		return cont()
	}
	d.sayf("Turned %s the %s.", state, name)
	return cont()
}

func (d *Dispatcher) reminder(_ context.Context, req Request) Outcome {
	now := d.deps.Now()
	at, expr, ok := nlu.ParseTime(req.Text, now)
	if !ok {
		d.say("I couldn't understand the time for the reminder.")
		return cont()
	}
	if !at.After(now) {
		d.say("That time has already passed.")
		return cont()
	}
	if !d.usable(featReminders, d.deps.Reminders != nil) {
		return cont()
	}

	msg := nlu.ReminderMessage(req.Text, expr)
	if err := d.deps.Reminders.Schedule(at, msg); err != nil {
		d.logger.Warn("schedule reminder", "err", err)
		d.say("I couldn't set that reminder.")
		return cont()
	}
	d.logSystem(fmt.Sprintf("Reminder at %s: %s", at.Format(time.DateTime), msg))
	d.sayf("Reminder set for %s.", at.Format("03:04 PM on Monday, January 02"))
	return cont()
}

func (d *Dispatcher) wikipedia(ctx context.Context, req Request) Outcome {
	if !d.usable(featWiki, d.deps.Encyclopedia != nil) {
		return cont()
	}
	topic := nlu.After(req.Text, "about")
	if topic == "" {
		d.say("What would you like to know about?")
		return cont()
	}

	summary, err := d.deps.Encyclopedia.Summary(ctx, topic)
	switch {
	case errors.Is(err, ports.ErrAmbiguous):
		d.say("There are multiple results. Please be more specific.")
	case errors.Is(err, ports.ErrNotFound):
		d.say("I couldn't find that on Wikipedia.")
	case err != nil:
		d.failed(featWiki, err, "I couldn't reach Wikipedia right now.")
	default:
		d.say("According to Wikipedia, " + summary)
	}
	return cont()
}

func (d *Dispatcher) window(ctx context.Context, req Request) Outcome {
	switch {
	case nlu.HasLemma(req.Text, "minimize"):
		if d.usable(featWindows, d.deps.Desktop != nil) {
			d.windowOp(d.deps.Desktop.MinimizeWindow(ctx), "Minimizing the window.")
		}
	case nlu.HasLemma(req.Text, "maximize"):
		if d.usable(featWindows, d.deps.Desktop != nil) {
			d.windowOp(d.deps.Desktop.MaximizeWindow(ctx), "Maximizing the window.")
		}
	default:
		target := strings.TrimPrefix(afterLemma(req.Text, "close"), "the ")
		switch target {
		case "", "window", "this window", "this", "it":
			if d.usable(featWindows, d.deps.Desktop != nil) {
				d.windowOp(d.deps.Desktop.CloseWindow(ctx), "Closing the window.")
			}
			return cont()
		}
		if d.deps.Processes == nil {
			d.sayf("I can't close %s on this system.", target)
			return cont()
		}
		name, err := d.deps.Processes.Close(ctx, target)
		switch {
		case errors.Is(err, ports.ErrNotFound):
			d.sayf("I couldn't find a running program called %s.", target)
		case err != nil:
			d.logger.Error("close process", "target", target, "err", err)
			d.sayf("I couldn't close %s.", target)
		default:
			d.sayf("Closed %s.", name)
		}
	}
	return cont()
}

func (d *Dispatcher) windowOp(err error, done string) {
	if err != nil {
		d.failed(featWindows, err, "I couldn't do that with the window.")
		return
	}
	d.say(done)
}

func (d *Dispatcher) exit(context.Context, Request) Outcome {
	d.say("Goodbye.")
	return terminate()
}

func (d *Dispatcher) power(ctx context.Context, req Request) Outcome {
	var (
		msg string
		run func(context.Context) error
	)
	desk := d.deps.Desktop
	switch {
	case exact(rebootPhrases...)(req):
		msg = "Restarting the system."
		if desk != nil {
			run = desk.Reboot
		}
	case exact(logOffPhrases...)(req):
		msg = "Logging off now."
		if desk != nil {
			run = desk.LogOff
		}
	default:
		msg = "Shutting down the system."
		if desk != nil {
			run = desk.PowerOff
		}
	}

	d.say(msg)
	if run == nil {
		d.logger.Warn("no desktop control for power command", "text", req.Text)
		return terminate()
	}
	if err := run(ctx); err != nil {
		d.logger.Error("power command", "text", req.Text, "err", err)
	}
	return terminate()
}

func (d *Dispatcher) play(_ context.Context, req Request) Outcome {
	track := strings.TrimSpace(strings.TrimPrefix(req.Text, "play "))
	if d.deps.Music != nil {
		if path, ok := d.deps.Music.Lookup(track); ok {
			if !d.usable(featMusic, d.deps.Player != nil) {
				return cont()
			}
			if err := d.deps.Player.Play(path); err != nil {
				d.failed(featMusic, err, "I couldn't play that file.")
				return cont()
			}
			base := filepath.Base(path)
			d.sayf("Playing %s from local music.", strings.TrimSuffix(base, filepath.Ext(base)))
			return cont()
		}
	}

	d.sayf("I couldn't find %s locally. I'll search YouTube.", track)
	d.open(actions.YouTubeSearchURL(track))
	return cont()
}

func (d *Dispatcher) musicOp(op func() error, done string) {
	if !d.usable(featMusic, d.deps.Player != nil) {
		return
	}
	if err := op(); err != nil {
		d.logger.Debug("music control", "err", err)
		d.say("Nothing is playing.")
		return
	}
	d.say(done)
}

func (d *Dispatcher) pause(context.Context, Request) Outcome {
	if d.deps.Player == nil {
		d.disable(featMusic)
		return cont()
	}
	d.musicOp(d.deps.Player.Pause, "Paused.")
	return cont()
}

func (d *Dispatcher) resume(context.Context, Request) Outcome {
	if d.deps.Player == nil {
		d.disable(featMusic)
		return cont()
	}
	d.musicOp(d.deps.Player.Resume, "Resuming music.")
	return cont()
}

func (d *Dispatcher) stop(context.Context, Request) Outcome {
	if d.deps.Player == nil {
		d.disable(featMusic)
		return cont()
	}
	d.musicOp(d.deps.Player.Stop, "Stopped music.")
	return cont()
}

func (d *Dispatcher) battery(ctx context.Context, _ Request) Outcome {
	if !d.usable(featSystem, d.deps.System != nil) {
		return cont()
	}
	st, err := d.deps.System.Battery(ctx)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		d.say("No battery information available.")
	case err != nil:
		d.failed(featSystem, err, "I couldn't read the battery status.")
	default:
		d.say(batteryLine(st))
	}
	return cont()
}

func batteryLine(st ports.BatteryStatus) string {
	plugged := "not plugged in"
	if st.Charging {
		plugged = "plugged in"
	}
	return fmt.Sprintf("Battery at %.0f percent and %s.", math.Round(st.Percent), plugged)
}

func (d *Dispatcher) cpu(ctx context.Context, _ Request) Outcome {
	if !d.usable(featSystem, d.deps.System != nil) {
		return cont()
	}
	pct, err := d.deps.System.CPUPercent(ctx)
	if err != nil {
		d.failed(featSystem, err, "I couldn't read the CPU usage.")
		return cont()
	}
	d.sayf("CPU usage is %.0f percent.", pct)
	return cont()
}

func (d *Dispatcher) ram(ctx context.Context, _ Request) Outcome {
	if !d.usable(featSystem, d.deps.System != nil) {
		return cont()
	}
	pct, err := d.deps.System.MemoryPercent(ctx)
	if err != nil {
		d.failed(featSystem, err, "I couldn't read the memory usage.")
		return cont()
	}
	d.sayf("Memory usage is %.0f percent.", pct)
	return cont()
}

func (d *Dispatcher) systemInfo(ctx context.Context, _ Request) Outcome {
	if !d.usable(featSystem, d.deps.System != nil) {
		return cont()
	}
	sys := d.deps.System

	var parts []string
	if info, err := sys.Describe(ctx); err == nil {
		parts = append(parts, fmt.Sprintf("You are running %s %s on %s.", info.Platform, info.Version, info.Arch))
	} else {
		d.logger.Warn("describe host", "err", err)
	}
	if pct, err := sys.CPUPercent(ctx); err == nil {
		parts = append(parts, fmt.Sprintf("CPU usage is %.0f percent.", pct))
	}
	if pct, err := sys.MemoryPercent(ctx); err == nil {
		parts = append(parts, fmt.Sprintf("Memory usage is %.0f percent.", pct))
	}
	if st, err := sys.Battery(ctx); err == nil {
		parts = append(parts, batteryLine(st))
	}

	if len(parts) == 0 {
		d.say("I couldn't read the system information.")
		return cont()
	}
	d.say(strings.Join(parts, " "))
	return cont()
}

func (d *Dispatcher) screenshot(context.Context, Request) Outcome {
	if !d.usable(featScreen, d.deps.Screenshots != nil) {
		return cont()
	}
	path, err := d.deps.Screenshots.Capture()
	if err != nil {
		d.failed(featScreen, err, "I couldn't take a screenshot.")
		return cont()
	}
	d.logSystem("Screenshot saved to " + path)
	d.sayf("I saved the screenshot as %s.", filepath.Base(path))
	return cont()
}

func (d *Dispatcher) joke(context.Context, Request) Outcome {
	if d.deps.Joke == nil {
		d.say("I'm out of jokes right now.")
		return cont()
	}
	d.say(d.deps.Joke())
	return cont()
}

func (d *Dispatcher) appendNote(text string) {
	if !d.usable(featNotes, d.deps.Notes != nil) {
		return
	}
	if err := d.deps.Notes.Append(text); err != nil {
		d.failed(featNotes, err, "I couldn't save the note.")
		return
	}
	d.say("Note saved.")
}

func (d *Dispatcher) saveNote(_ context.Context, req Request) Outcome {
	text := rawArgument(req.Raw)
	if text == "" {
		d.say("The note is empty.")
		return cont()
	}
	d.appendNote(text)
	return cont()
}

func (d *Dispatcher) takeNote(ctx context.Context, _ Request) Outcome {
	if !d.usable(featNotes, d.deps.Notes != nil) {
		return cont()
	}
	text := d.ask(ctx, "What would you like me to write down?", promptTimeout, bodyPhrase)
	if text == "" {
		d.say("I didn't get that. Canceling note.")
		return cont()
	}
	d.appendNote(text)
	return cont()
}

func (d *Dispatcher) clipboard(context.Context, Request) Outcome {
	if !d.usable(featClipboard, d.deps.Clipboard != nil) {
		return cont()
	}
	text, err := d.deps.Clipboard.Read()
	if err != nil {
		d.failed(featClipboard, err, "I couldn't read the clipboard.")
		return cont()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		d.say("Your clipboard is empty.")
		return cont()
	}
	d.say("Clipboard says: " + text)
	return cont()
}

func (d *Dispatcher) volumeUp(ctx context.Context, _ Request) Outcome {
	if !d.usable(featVolume, d.deps.Volume != nil) {
		return cont()
	}
	if err := d.deps.Volume.Up(ctx); err != nil {
		d.failed(featVolume, err, "I couldn't change the volume.")
		return cont()
	}
	d.say("Volume increased.")
	return cont()
}

func (d *Dispatcher) volumeDown(ctx context.Context, _ Request) Outcome {
	if !d.usable(featVolume, d.deps.Volume != nil) {
		return cont()
	}
	if err := d.deps.Volume.Down(ctx); err != nil {
		d.failed(featVolume, err, "I couldn't change the volume.")
		return cont()
	}
	d.say("Volume decreased.")
	return cont()
}

func (d *Dispatcher) mute(ctx context.Context, _ Request) Outcome {
	if !d.usable(featVolume, d.deps.Volume != nil) {
		return cont()
	}
	muted, err := d.deps.Volume.ToggleMute(ctx)
	if err != nil {
		d.failed(featVolume, err, "I couldn't change the volume.")
		return cont()
	}
	if muted {
		d.say("Muted.")
	} else {
		d.say("Unmuted.")
	}
	return cont()
}

func (d *Dispatcher) news(ctx context.Context, _ Request) Outcome {
	if !d.usable(featNews, d.deps.News != nil) {
		return cont()
	}
	headlines, err := d.deps.News.Headlines(ctx, 3)
	if err != nil {
		d.failed(featNews, err, "I couldn't fetch the news right now.")
		return cont()
	}
	if len(headlines) == 0 {
		d.say("I couldn't find any headlines.")
		return cont()
	}
	d.say("Here are the top headlines.")
	for _, h := range headlines {
		d.say(h)
	}
	return cont()
}

func (d *Dispatcher) tellTime(context.Context, Request) Outcome {
	d.say("The time is " + d.deps.Now().Format("03:04 PM"))
	return cont()
}

func (d *Dispatcher) tellDate(context.Context, Request) Outcome {
	d.say("Today is " + d.deps.Now().Format("Monday, January 02, 2006"))
	return cont()
}

func (d *Dispatcher) webSearch(_ context.Context, req Request) Outcome {
	if req.Text == "" {
		d.say("I didn't catch that.")
		return cont()
	}
	d.say("Searching the web for " + req.Text)
	d.searchWeb(req.Text)
	return cont()
}
