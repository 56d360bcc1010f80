// tlvdump validates a stream of concatenated messages and prints one line
// per message followed by a summary.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sugawarayuuta/sonnet"

	"github.com/danmuck/tlvwire/internal/config"
	"github.com/danmuck/tlvwire/internal/inspect"
	"github.com/danmuck/tlvwire/internal/observability"
	"github.com/danmuck/tlvwire/internal/protocol/frame"
	"github.com/danmuck/tlvwire/internal/validation"
)

type options struct {
	json bool
}

type summary struct {
	Total    int
	Valid    int
	Advisory int
	Rejected map[string]int
}

func main() {
	configPath := flag.String("config", "", "config file (defaults to the preset)")
	preset := flag.String("preset", "default", "validation preset when -config is not set")
	asJSON := flag.Bool("json", false, "print one JSON report per message")
	skipClock := flag.Bool("no-clock", false, "skip timestamp checks, for replaying old captures")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("tlvdump", "warn", cfg.Log.NoColor)

	v := validation.New(validationConfig(cfg.Validation, *skipClock))
	opts := options{json: *asJSON}

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	total := summary{Rejected: map[string]int{}}
	for _, path := range inputs {
		s, err := dumpPath(path, out, v, opts)
		total.merge(s)
		if err != nil {
			out.Flush()
			log.Fatal().Err(err).Str("input", path).Msg("read failed")
		}
	}
	fmt.Fprintln(out, total.String())
	if len(total.Rejected) > 0 {
		out.Flush()
		os.Exit(1)
	}
}

func loadConfig(path, preset string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Default(preset)
}

// validationConfig turns timestamp checks off for replays. Checksums stay on.
func validationConfig(cfg validation.Config, skipClock bool) validation.Config {
	if !skipClock {
		return cfg
	}
	cfg = cfg.Clone()
	cfg.Timestamp.MaxAge = math.MaxInt64
	cfg.Timestamp.MaxFutureDrift = math.MaxInt64
	return cfg
}

func dumpPath(path string, w io.Writer, v *validation.Validator, opts options) (summary, error) {
	if path == "-" {
		return dump(bufio.NewReader(os.Stdin), w, v, opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return summary{Rejected: map[string]int{}}, err
	}
	defer f.Close()
	return dump(bufio.NewReader(f), w, v, opts)
}

// dump validates every message in r. A framing error ends the stream since
// message boundaries can no longer be trusted.
func dump(r io.Reader, w io.Writer, v *validation.Validator, opts options) (summary, error) {
	s := summary{Rejected: map[string]int{}}
	limits := frame.DefaultLimits()
	var buf []byte
	for {
		msg, err := frame.ReadMessageInto(r, buf, limits)
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, fmt.Errorf("message %d: %w", s.Total+1, err)
		}
		buf = msg

		validated, verr := v.ValidateMessage(msg)
		report := inspect.NewReport(validated, verr)
		s.Total++
		switch {
		case !report.Valid:
			s.Rejected[report.Kind]++
		case report.Advisory:
			s.Advisory++
		default:
			s.Valid++
		}

		if opts.json {
			line, err := sonnet.Marshal(report)
			if err != nil {
				return s, err
			}
			if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
				return s, err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, formatLine(s.Total, report)); err != nil {
			return s, err
		}
	}
}

func formatLine(n int, r inspect.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d", n)
	if h := r.Header; h != nil {
		fmt.Fprintf(&b, " %s/%s seq=%d size=%d level=%s", h.Domain, h.Source, h.Sequence, h.PayloadSize, r.Level)
	}
	for _, rec := range r.Records {
		fmt.Fprintf(&b, " [%s", rec.Name)
		switch {
		case rec.Trade != nil:
			fmt.Fprintf(&b, " %s@%s", rec.Trade.Volume, rec.Trade.Price)
		case rec.Pool != "":
			fmt.Fprintf(&b, " %s", rec.Pool)
		default:
			fmt.Fprintf(&b, " %dB", rec.Size)
		}
		b.WriteByte(']')
	}
	switch {
	case !r.Valid:
		fmt.Fprintf(&b, " REJECTED %s: %s", r.Kind, r.Error)
	case r.Advisory:
		fmt.Fprintf(&b, " ok (%s)", r.Error)
	default:
		b.WriteString(" ok")
	}
	return b.String()
}

func (s *summary) merge(o summary) {
	s.Total += o.Total
	s.Valid += o.Valid
	s.Advisory += o.Advisory
	for k, n := range o.Rejected {
		s.Rejected[k] += n
	}
}

func (s summary) String() string {
	rejected := 0
	kinds := make([]string, 0, len(s.Rejected))
	for k, n := range s.Rejected {
		rejected += n
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	line := fmt.Sprintf("messages=%d valid=%d advisory=%d rejected=%d", s.Total, s.Valid, s.Advisory, rejected)
	if len(kinds) > 0 {
		line += " (" + strings.Join(kinds, " ") + ")"
	}
	return line
}
