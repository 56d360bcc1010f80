package inspect

import (
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const streamWriteTimeout = 10 * time.Second

func (s *Server) upgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(s.origins))
	for _, o := range s.origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// handleStream validates every frame a client sends and answers each with a
// Report. Binary frames carry raw messages, text frames carry hex.
func (s *Server) handleStream(c *gin.Context) {
	up := s.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("inspect: websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(2*s.maxBody + 2)

	peer := conn.RemoteAddr().String()
	log.Debug().Str("peer", peer).Msg("inspect: stream opened")
	count := 0
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("peer", peer).Msg("inspect: stream read ended")
			}
			break
		}
		var report Report
		switch kind {
		case websocket.BinaryMessage:
			report = s.validateFrame(data)
		case websocket.TextMessage:
			raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
			if err != nil {
				report = Report{Error: "invalid hex frame: " + err.Error(), Kind: "protocol"}
				break
			}
			report = s.validateFrame(raw)
		default:
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(report); err != nil {
			log.Debug().Err(err).Str("peer", peer).Msg("inspect: stream write failed")
			break
		}
		count++
	}
	log.Debug().Str("peer", peer).Int("messages", count).Msg("inspect: stream closed")
}

func (s *Server) validateFrame(b []byte) Report {
	if int64(len(b)) > s.maxBody {
		return Report{Error: "message exceeds frame limit", Kind: "capacity"}
	}
	msg, err := s.validator.ValidateMessage(b)
	return NewReport(msg, err)
}
