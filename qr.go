/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/blanks/games/blanks"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// serveRoomQR renders a PNG QR code pointing at the room's join URL, so a
// room can be shared from one screen to the phones around it.
func serveRoomQR(cfg *Config, g *blanks.Gateway, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		roomID := blanks.NormalizeRoomID(ps.ByName("roomid"))
		if !blanks.ValidRoomID(roomID) {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}
		if !g.RoomExists(roomID) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		url := requestScheme(cfg, r) + "://" + r.Host + roomPath(cfg, roomID)

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		cfg.log.Info().Msgf("SERVE: QR code for room %s (%s) to %s in %s",
			roomID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// requestScheme picks the scheme clients reached us over. A proxy's
// X-Forwarded-Proto is honoured only when it names http or https.
func requestScheme(cfg *Config, r *http.Request) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}

	switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
	case "http", "https":
		scheme = proto
	}

	return scheme
}

// roomPath is the path a room's QR code points at, relative to the host.
func roomPath(cfg *Config, roomID string) string {
	return strings.TrimSuffix(cfg.prefix, "/") + "/rooms/" + roomID
}
