package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseStandardAndExtendedRecords(t *testing.T) {
	big := bytes.Repeat([]byte{0xAB}, 300)
	var payload []byte
	var err error
	payload, err = Append(payload, 1, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("append standard: %v", err)
	}
	payload, err = Append(payload, 3, big)
	if err != nil {
		t.Fatalf("append extended: %v", err)
	}
	payload, err = Append(payload, 2, nil)
	if err != nil {
		t.Fatalf("append empty: %v", err)
	}
	if len(payload) != 2+3+5+300+2 {
		t.Fatalf("unexpected encoded length %d", len(payload))
	}

	views, err := Parse(nil, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	if views[0].Type != 1 || views[0].Extended || !bytes.Equal(views[0].Payload, []byte{1, 2, 3}) {
		t.Fatalf("bad standard view: %+v", views[0])
	}
	if views[1].Type != 3 || !views[1].Extended || !bytes.Equal(views[1].Payload, big) {
		t.Fatalf("bad extended view type=%d extended=%v len=%d", views[1].Type, views[1].Extended, len(views[1].Payload))
	}
	if views[1].Offset != 5 || views[1].Len() != 305 {
		t.Fatalf("bad extended offset/len: %d/%d", views[1].Offset, views[1].Len())
	}
	if views[2].Type != 2 || len(views[2].Payload) != 0 {
		t.Fatalf("zero length record should decode empty: %+v", views[2])
	}
}

func TestViewsAliasInputBuffer(t *testing.T) {
	payload := []byte{7, 2, 0xAA, 0xBB}
	views, err := Parse(nil, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload[2] = 0xCC
	if views[0].Payload[0] != 0xCC {
		t.Fatalf("view should alias the input buffer")
	}
	if cap(views[0].Payload) != 2 {
		t.Fatalf("view capacity must stop at record end, got %d", cap(views[0].Payload))
	}
}

func TestParseRejectsTruncationAtEveryOffset(t *testing.T) {
	var full []byte
	full, _ = Append(full, 1, []byte{1, 2, 3, 4})
	full, _ = Append(full, 5, bytes.Repeat([]byte{9}, 400))
	full, _ = Append(full, 6, []byte{1})

	boundaries := map[int]bool{0: true, 6: true, 6 + 405: true, len(full): true}
	for k := 0; k < len(full); k++ {
		_, err := Parse(nil, full[:k])
		if boundaries[k] {
			if err != nil {
				t.Fatalf("prefix %d ends on a record boundary, got %v", k, err)
			}
			continue
		}
		var trunc *TruncatedError
		if !errors.As(err, &trunc) {
			t.Fatalf("prefix %d: expected TruncatedError, got %v", k, err)
		}
		if trunc.Remaining >= trunc.Declared {
			t.Fatalf("prefix %d: remaining %d should be below declared %d", k, trunc.Remaining, trunc.Declared)
		}
	}
}

func TestTruncatedErrorCarriesContext(t *testing.T) {
	payload := []byte{1, 0, 4, 10, 1, 2}
	_, err := Parse(nil, payload)
	var trunc *TruncatedError
	if !errors.As(err, &trunc) {
		t.Fatalf("expected TruncatedError, got %v", err)
	}
	if trunc.Offset != 2 || trunc.Type != 4 || trunc.Declared != 12 || trunc.Remaining != 4 {
		t.Fatalf("unexpected error context: %+v", trunc)
	}
}

func TestExtendedIgnoresReservedByte(t *testing.T) {
	payload := []byte{ExtendedMarker, 0x7F, 3, 2, 0, 0xAA, 0xBB}
	views, err := Parse(nil, payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(views) != 1 || views[0].Type != 3 || !views[0].Extended || !bytes.Equal(views[0].Payload, []byte{0xAA, 0xBB}) {
		t.Fatalf("unexpected views: %+v", views)
	}

	buf := make([]byte, 8)
	if _, err := PutExtended(buf, 3, []byte{0xAA}); err != nil {
		t.Fatalf("put extended: %v", err)
	}
	if buf[1] != 0 {
		t.Fatalf("encoder wrote reserved byte 0x%02x", buf[1])
	}
}

func TestPutValidatesInput(t *testing.T) {
	buf := make([]byte, 8)
	if _, err := PutStandard(buf, ExtendedMarker, nil); !errors.Is(err, ErrReservedType) {
		t.Fatalf("expected ErrReservedType, got %v", err)
	}
	if _, err := PutStandard(buf, 0, nil); !errors.Is(err, ErrZeroType) {
		t.Fatalf("expected ErrZeroType, got %v", err)
	}
	if _, err := Put(buf, 0, []byte{1}); !errors.Is(err, ErrZeroType) {
		t.Fatalf("expected ErrZeroType from Put, got %v", err)
	}
	if _, err := PutStandard(buf, 1, make([]byte, 7)); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	if _, err := PutExtended(make([]byte, 70000), 1, make([]byte, MaxPayload+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := PutStandard(make([]byte, 300), 1, make([]byte, 256)); err == nil {
		t.Fatalf("expected standard form to reject 256-byte payload")
	}

	n, err := Put(buf, ExtendedMarker, []byte{1})
	if err != nil || n != ExtendedHeaderLen+1 || buf[2] != ExtendedMarker {
		t.Fatalf("type 255 should encode extended: n=%d err=%v buf=%v", n, err, buf)
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	var payload []byte
	payload, _ = Append(payload, 1, []byte{1})
	payload, _ = Append(payload, 2, []byte{2})
	stop := errors.New("stop")
	seen := 0
	err := Walk(payload, func(v View) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("walk should stop after first callback error: seen=%d err=%v", seen, err)
	}

	n, err := Count(payload)
	if err != nil || n != 2 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}

func TestEncodedLen(t *testing.T) {
	cases := map[int]int{0: 2, 255: 257, 256: 261, 65535: 65540}
	for n, want := range cases {
		if got := EncodedLen(n); got != want {
			t.Fatalf("EncodedLen(%d)=%d want %d", n, got, want)
		}
	}
}
