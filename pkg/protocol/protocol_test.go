package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	msg, err := Parse("terminator:ok:lamp:on:VERTEX\n")
	require.NoError(t, err)
	assert.Equal(t, Message{To: "terminator", Verb: "OK", Noun: "LAMP", Args: []string{"on"}, From: "VERTEX"}, msg)
	assert.Equal(t, "terminator:OK:LAMP:on:VERTEX", msg.String())

	for _, bad := range []string{"", "a:b:c", "a:b c:d:e", "a:b:c:d$"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestMessageErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Message{Verb: VerbOK}.Err())
	err := Message{Verb: VerbErr, Noun: "UNKNOWN", Args: []string{"FAN"}}.Err()
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "UNKNOWN FAN")
}

// hub answers ON/OFF requests for LAMP and rejects everything else. A request
// for SILENT gets no reply.
func hub(t *testing.T, push chan<- string) *httptest.Server {
	t.Helper()

	up := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if push != nil {
			push <- "ready"
			conn.WriteMessage(ws.TextMessage, []byte("ALL:EVT:MOTION:hall:VERTEX"))
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := Parse(string(data))
			if err != nil {
				continue
			}
			reply := Message{To: req.From, Verb: VerbOK, Noun: req.Noun, Args: []string{req.Verb}, From: req.To}
			switch req.Noun {
			case "LAMP":
			case "SILENT":
				continue
			default:
				reply.Verb = VerbErr
				reply.Noun = "UNKNOWN"
				reply.Args = []string{req.Noun}
			}
			conn.WriteMessage(ws.TextMessage, []byte(reply.String()))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, onMessage func(Message)) *Client {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), Config{
		URL:       url,
		Shard:     "terminator",
		Timeout:   300 * time.Millisecond,
		OnMessage: onMessage,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestRequestReply(t *testing.T) {
	t.Parallel()

	c := dial(t, hub(t, nil), nil)

	reply, err := c.Request(context.Background(), "VERTEX", "ON", "LAMP")
	require.NoError(t, err)
	assert.Equal(t, VerbOK, reply.Verb)
	assert.Equal(t, []string{"ON"}, reply.Args)

	_, err = c.Request(context.Background(), "VERTEX", "ON", "FAN")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRequestTimesOut(t *testing.T) {
	t.Parallel()

	c := dial(t, hub(t, nil), nil)

	start := time.Now()
	_, err := c.Request(context.Background(), "VERTEX", "ON", "SILENT")
	assert.ErrorContains(t, err, "no reply")
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	// The connection is still usable after a lost reply.
	_, err = c.Request(context.Background(), "VERTEX", "OFF", "LAMP")
	assert.NoError(t, err)
}

func TestUnsolicitedMessages(t *testing.T) {
	t.Parallel()

	ready := make(chan string, 1)
	got := make(chan Message, 1)
	dial(t, hub(t, ready), func(m Message) { got <- m })

	<-ready
	select {
	case m := <-got:
		assert.Equal(t, "EVT", m.Verb)
		assert.Equal(t, "MOTION", m.Noun)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast was not delivered")
	}
}

func TestDialValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), Config{Shard: "x"})
	assert.Error(t, err)
	_, err = Dial(context.Background(), Config{URL: "ws://127.0.0.1:1"})
	assert.Error(t, err)
}
