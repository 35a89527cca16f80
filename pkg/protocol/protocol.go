// Package protocol speaks the colon separated line protocol of the device hub:
//
//	TO:VERB:NOUN[:ARG...]:FROM
//
// A reply is addressed to the requesting shard and carries OK or ERR as verb.
package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	VerbOK  = "OK"
	VerbErr = "ERR"
	// Broadcast is accepted as recipient by every shard.
	Broadcast = "ALL"
)

var ErrRejected = errors.New("hub rejected request")

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

func (m Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To, m.Verb, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

// Err converts an ERR reply into an error.
func (m Message) Err() error {
	if m.Verb != VerbErr {
		return nil
	}
	if len(m.Args) == 0 {
		return fmt.Errorf("%w: %s", ErrRejected, m.Noun)
	}
	return fmt.Errorf("%w: %s %s", ErrRejected, m.Noun, strings.Join(m.Args, " "))
}

func Parse(line string) (Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Message{}, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return Message{}, errors.New("invalid whitespace present")
	}
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return Message{}, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	msg := Message{
		To:   parts[0],
		Verb: strings.ToUpper(parts[1]),
		Noun: strings.ToUpper(parts[2]),
		Args: append([]string(nil), parts[3:len(parts)-1]...),
		From: parts[len(parts)-1],
	}

	if !isToken(msg.To) && !isHexID(msg.To) && msg.To != Broadcast {
		return Message{}, fmt.Errorf("invalid TO token: %q", msg.To)
	}
	if !isToken(msg.From) && !isHexID(msg.From) {
		return Message{}, fmt.Errorf("invalid FROM token: %q", msg.From)
	}
	if !isToken(msg.Noun) || !isToken(msg.Verb) {
		return Message{}, fmt.Errorf("invalid NOUN/VERB: %q %q", msg.Noun, msg.Verb)
	}
	for i, a := range msg.Args {
		if !isToken(a) {
			return Message{}, fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}
	return msg, nil
}

var (
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hexIDRe = regexp.MustCompile(`^[0-9A-F]{2}$`)
)

func isToken(s string) bool {
	return tokenRe.MatchString(s)
}

func isHexID(s string) bool {
	return hexIDRe.MatchString(strings.ToUpper(s))
}
