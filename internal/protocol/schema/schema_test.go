package schema

import (
	"testing"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
	"github.com/danmuck/tlvwire/internal/testutil/testlog"
)

func TestValidateSizeFixed(t *testing.T) {
	testlog.Start(t)
	if err := ValidateSize(tlv.View{Type: protocol.TypeTrade, Payload: make([]byte, protocol.TradeSize)}); err != nil {
		t.Fatalf("validate trade: %v", err)
	}
	err := ValidateSize(tlv.View{Type: protocol.TypeTrade, Payload: make([]byte, 40)})
	if err == nil {
		t.Fatalf("expected error")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Type != protocol.TypeTrade || ve.Name != "Trade" || ve.Size != 40 {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateSizeBounded(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		size int
		ok   bool
	}{
		{19, false},
		{20, true},
		{200, true},
		{201, false},
	}
	for _, tc := range cases {
		err := ValidateSize(tlv.View{Type: protocol.TypePoolSwap, Payload: make([]byte, tc.size)})
		if (err == nil) != tc.ok {
			t.Fatalf("size=%d ok=%v err=%v", tc.size, tc.ok, err)
		}
	}
}

func TestUnknownTypesIgnored(t *testing.T) {
	testlog.Start(t)
	if err := ValidateSize(tlv.View{Type: 200, Payload: make([]byte, 3)}); err != nil {
		t.Fatalf("unregistered type should pass: %v", err)
	}
	if err := ValidateDomain(200, protocol.DomainSignal); err != nil {
		t.Fatalf("unregistered type should pass domain check: %v", err)
	}
	if Name(200) != "type_200" {
		t.Fatalf("unexpected name %q", Name(200))
	}
}

func TestRegistryDomainsMatchTypeRanges(t *testing.T) {
	testlog.Start(t)
	for _, e := range Entries() {
		var want protocol.RelayDomain
		switch {
		case e.Type >= 1 && e.Type <= 19:
			want = protocol.DomainMarketData
		case e.Type >= 20 && e.Type <= 39:
			want = protocol.DomainSignal
		case e.Type >= 40 && e.Type <= 79:
			want = protocol.DomainExecution
		default:
			t.Fatalf("type %d outside every domain range", e.Type)
		}
		if e.Domain != want {
			t.Fatalf("type %d (%s) registered for %s, want %s", e.Type, e.Name, e.Domain, want)
		}
		if e.Kind == SizeFixed && e.Min != e.Max {
			t.Fatalf("fixed entry %s has min %d max %d", e.Name, e.Min, e.Max)
		}
	}
	if err := ValidateDomain(protocol.TypeFill, protocol.DomainMarketData); err == nil {
		t.Fatalf("expected Fill to be rejected for market data")
	}
}

func TestLookupIsOrdered(t *testing.T) {
	testlog.Start(t)
	entries := Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Type >= entries[i].Type {
			t.Fatalf("entries not ordered at %d", i)
		}
	}
	e, ok := Lookup(protocol.TypePoolBurn)
	if !ok || e.Name != "PoolBurn" || e.Kind != SizeBounded {
		t.Fatalf("unexpected entry: %+v", e)
	}
}
