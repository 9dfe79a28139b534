/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/blanks/games/blanks"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10

	// Room snapshots are small, so this covers many rounds of backlog.
	sendBuffer = 64
)

var errSendBufferFull = errors.New("send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket connection. Outbound messages are queued on
// send and written in order by writePump.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan blanks.Message
	done    chan struct{}
	limiter *rate.Limiter
	log     zerolog.Logger

	closeOnce sync.Once
}

func newClient(cfg *Config, conn *websocket.Conn) *client {
	id := uuid.NewString()

	return &client{
		id:      id,
		conn:    conn,
		send:    make(chan blanks.Message, sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
		log:     cfg.log.With().Str("conn", id).Logger(),
	}
}

func (c *client) ID() string {
	return c.id
}

// Send queues m without blocking. A client that cannot keep up gets an
// error, and the gateway drops it.
func (c *client) Send(m blanks.Message) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}

	select {
	case c.send <- m:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) reply(id int64, ack blanks.Ack) {
	if err := c.Send(blanks.Message{Type: blanks.EventAck, ID: id, Payload: ack}); err != nil {
		c.Close()
	}
}

func (c *client) notify(msg string) {
	if err := c.Send(blanks.Message{Type: blanks.EventError, Payload: blanks.Notice{Message: msg}}); err != nil {
		c.Close()
	}
}

func (c *client) readPump(g *blanks.Gateway) {
	defer func() {
		g.Disconnect(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug().Err(err).Msg("SERVE: Connection lost")
			}
			return
		}

		var env blanks.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.notify("Malformed message.")
			continue
		}

		if !c.limiter.Allow() {
			c.reply(env.ID, blanks.Ack{Error: blanks.CodeUnknown})
			c.notify("Too many requests, slow down.")
			continue
		}

		c.reply(env.ID, g.Handle(c.id, env))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveWS(cfg *Config, g *blanks.Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.log.Warn().Err(err).Str("remote", realIP(r)).Msg("SERVE: Websocket upgrade failed")
			return
		}

		c := newClient(cfg, conn)
		g.Connect(c)

		cfg.log.Info().Str("conn", c.id).Str("remote", realIP(r)).Msg("SERVE: Websocket connected")

		go c.writePump()
		c.readPump(g)
	}
}
