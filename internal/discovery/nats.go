package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sugawarayuuta/sonnet"

	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

const DefaultSubject = "tlvwire.pools.resolve"

type NATSConfig struct {
	URL     string
	Subject string
	Name    string
}

// Dial connects with unlimited reconnects so a restarted broker does not
// take the worker down.
func Dial(cfg NATSConfig) (*nats.Conn, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: connect %s: %w", url, err)
	}
	return nc, nil
}

type poolRequest struct {
	Pool string `json:"pool"`
}

type poolReply struct {
	Pool   string `json:"pool"`
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Venue  uint16 `json:"venue"`
	FeeBps uint32 `json:"fee_bps"`
	Found  bool   `json:"found"`
	Error  string `json:"error,omitempty"`
}

// NATSResolver asks a metadata service over NATS request/reply.
type NATSResolver struct {
	nc      *nats.Conn
	subject string
}

func NewNATSResolver(nc *nats.Conn, subject string) *NATSResolver {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSResolver{nc: nc, subject: subject}
}

func (r *NATSResolver) Resolve(ctx context.Context, pool instrument.Address) (PoolInfo, error) {
	req, err := sonnet.Marshal(poolRequest{Pool: pool.String()})
	if err != nil {
		return PoolInfo{}, err
	}
	msg, err := r.nc.RequestWithContext(ctx, r.subject, req)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("discovery: request %s: %w", r.subject, err)
	}
	return decodeReply(pool, msg.Data)
}

func decodeReply(pool instrument.Address, data []byte) (PoolInfo, error) {
	var rep poolReply
	if err := sonnet.Unmarshal(data, &rep); err != nil {
		return PoolInfo{}, fmt.Errorf("discovery: decode reply: %w", err)
	}
	if rep.Error != "" {
		return PoolInfo{}, fmt.Errorf("discovery: resolver error: %s", rep.Error)
	}
	if !rep.Found {
		return PoolInfo{}, ErrPoolNotFound
	}
	info := PoolInfo{Pool: pool, Venue: instrument.Venue(rep.Venue), FeeBps: rep.FeeBps}
	var err error
	if rep.Pool != "" {
		got, err := instrument.ParseAddress(rep.Pool)
		if err != nil {
			return PoolInfo{}, fmt.Errorf("discovery: reply pool: %w", err)
		}
		if got != pool {
			return PoolInfo{}, fmt.Errorf("discovery: reply for %s, asked for %s", got, pool)
		}
	}
	if info.Token0, err = parseOptional(rep.Token0); err != nil {
		return PoolInfo{}, fmt.Errorf("discovery: reply token0: %w", err)
	}
	if info.Token1, err = parseOptional(rep.Token1); err != nil {
		return PoolInfo{}, fmt.Errorf("discovery: reply token1: %w", err)
	}
	return info, nil
}

func parseOptional(s string) (instrument.Address, error) {
	if s == "" {
		return instrument.Address{}, nil
	}
	return instrument.ParseAddress(s)
}

// Serve answers resolve requests from a static table. It backs tests and
// single-node deployments without a metadata service.
func Serve(nc *nats.Conn, subject string, table map[instrument.Address]PoolInfo) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return nc.Subscribe(subject, func(m *nats.Msg) {
		_ = m.Respond(encodeReply(m.Data, table))
	})
}

func encodeReply(data []byte, table map[instrument.Address]PoolInfo) []byte {
	var req poolRequest
	var rep poolReply
	if err := sonnet.Unmarshal(data, &req); err != nil {
		rep.Error = "bad request: " + err.Error()
	} else if addr, err := instrument.ParseAddress(req.Pool); err != nil {
		rep.Error = "bad pool: " + err.Error()
	} else if info, ok := table[addr]; ok {
		rep = poolReply{
			Pool:   addr.String(),
			Token0: info.Token0.String(),
			Token1: info.Token1.String(),
			Venue:  uint16(info.Venue),
			FeeBps: info.FeeBps,
			Found:  true,
		}
	} else {
		rep.Pool = addr.String()
	}
	out, _ := sonnet.Marshal(rep)
	return out
}
