// tlvgen writes a synthetic stream of concatenated messages for exercising
// tlvdump, the inspect server and benchmarks.
package main

import (
	"bufio"
	"flag"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/danmuck/tlvwire/internal/bufpool"
	"github.com/danmuck/tlvwire/internal/observability"
	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/frame"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

func main() {
	out := flag.String("out", "-", "output file, - for stdout")
	count := flag.Int("count", 1000, "number of messages")
	seed := flag.Int64("seed", 1, "random seed")
	pools := flag.Int("pools", 8, "distinct pool addresses used by swap records")
	faults := flag.Float64("faults", 0, "fraction of messages to corrupt (0-1)")
	flag.Parse()

	observability.InitLogger("tlvgen", "info", false)

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("create output")
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	bp := bufpool.New(bufpool.WithFailureHook(observability.BufpoolFailureHook()))
	g := newGenerator(rand.New(rand.NewSource(*seed)), *pools, *faults, bp.Worker(0))
	defer bp.Release(0)

	if err := g.generate(bw, *count); err != nil {
		log.Fatal().Err(err).Msg("generate")
	}
	if err := bw.Flush(); err != nil {
		log.Fatal().Err(err).Msg("flush")
	}
	log.Info().Int("messages", *count).Int("corrupted", g.corrupted).Str("out", *out).Msg("done")
}

type generator struct {
	rng       *rand.Rand
	pools     []instrument.Address
	faults    float64
	worker    *bufpool.Worker
	builder   *protocol.Builder
	seqs      map[protocol.Source]uint64
	now       func() time.Time
	corrupted int

	scratch [256]byte
}

func newGenerator(rng *rand.Rand, pools int, faults float64, w *bufpool.Worker) *generator {
	if pools < 1 {
		pools = 1
	}
	g := &generator{
		rng:     rng,
		faults:  faults,
		worker:  w,
		builder: protocol.NewBuilder(protocol.DomainMarketData, protocol.SourcePolygonCollector),
		seqs:    make(map[protocol.Source]uint64),
		now:     time.Now,
	}
	for i := 0; i < pools; i++ {
		var a instrument.Address
		rng.Read(a[:])
		g.pools = append(g.pools, a)
	}
	return g
}

func (g *generator) generate(w io.Writer, n int) error {
	limits := frame.DefaultLimits()
	for i := 0; i < n; i++ {
		g.next()
		corrupt := g.faults > 0 && g.rng.Float64() < g.faults
		_, err := bufpool.BuildWithSizeHint(g.worker, g.builder.Size(), func(buf []byte) (struct{}, int, error) {
			size, err := g.builder.EncodeInto(buf)
			if err != nil {
				return struct{}{}, 0, err
			}
			msg := buf[:size]
			if corrupt {
				g.corrupt(msg)
			}
			return struct{}{}, size, frame.WriteMessage(w, msg, limits)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// next loads the builder with a random message: mostly trades, then pool
// swaps, arbitrage signals and order requests.
func (g *generator) next() {
	roll := g.rng.Intn(100)
	switch {
	case roll < 60:
		price := decimal.NewFromFloat(40000 + g.rng.Float64()*10000).Round(2)
		volume := decimal.NewFromFloat(g.rng.Float64() * 5).Round(8)
		trade := protocol.NewTrade(price, volume)
		trade.PutBytes(g.scratch[:protocol.TradeSize])
		g.start(protocol.DomainMarketData, protocol.SourcePolygonCollector).
			Add(protocol.TypeTrade, g.scratch[:protocol.TradeSize])
	case roll < 85:
		pool := g.pools[g.rng.Intn(len(g.pools))]
		payload := g.scratch[:64]
		copy(payload, pool[:])
		g.rng.Read(payload[instrument.AddressLen:])
		g.start(protocol.DomainMarketData, protocol.SourcePolygonCollector).
			Add(protocol.TypePoolSwap, payload)
	case roll < 95:
		payload := g.scratch[:170]
		g.rng.Read(payload)
		g.start(protocol.DomainSignal, protocol.SourceArbitrageStrategy).
			Add(protocol.TypeArbitrageSignal, payload)
	default:
		payload := g.scratch[:32]
		g.rng.Read(payload)
		g.start(protocol.DomainExecution, protocol.SourceExecutionEngine).
			Add(protocol.TypeOrderRequest, payload)
	}
}

func (g *generator) start(d protocol.RelayDomain, src protocol.Source) *protocol.Builder {
	g.seqs[src]++
	g.builder.Reset(d, src)
	return g.builder.Sequence(g.seqs[src]).Timestamp(uint64(g.now().UnixNano()))
}

// corrupt damages an encoded message in one of three ways a validator
// must catch. The payload size is never touched so framing stays intact.
func (g *generator) corrupt(msg []byte) {
	g.corrupted++
	switch g.rng.Intn(3) {
	case 0:
		msg[protocol.ChecksumOffset] ^= 0xFF
	case 1:
		msg[protocol.HeaderSize] = 0xFE
		_ = protocol.EmbedChecksum(msg)
	default:
		msg[7] = 0 // source
		_ = protocol.EmbedChecksum(msg)
	}
}
