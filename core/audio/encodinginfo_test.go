package audio

import (
	"testing"
	"time"
)

func TestEncodingInfoDuration(t *testing.T) {
	info := DefaultEncodingInfo()

	if got := info.Duration(DefaultSampleRate * 2); got != time.Second {
		t.Fatalf("expected one second of linear16 audio, got %v", got)
	}
	if got := (EncodingInfo{}).Duration(100); got != 0 {
		t.Fatalf("expected zero duration for unknown encoding, got %v", got)
	}
}

func TestEncodingInfoChunkSize(t *testing.T) {
	cases := []struct {
		info EncodingInfo
		d    time.Duration
		want int
	}{
		{DefaultEncodingInfo(), 50 * time.Millisecond, 1600},
		{EncodingInfo{SampleRate: 8000, Format: FormatMulaw}, 20 * time.Millisecond, 160},
		{EncodingInfo{SampleRate: 8000, Format: "opus"}, time.Second, 0},
	}
	for _, tc := range cases {
		if got := tc.info.ChunkSize(tc.d); got != tc.want {
			t.Fatalf("expected %d bytes for %v of %+v, got %d", tc.want, tc.d, tc.info, got)
		}
	}
}

func TestEncodingInfoSilence(t *testing.T) {
	mulaw := EncodingInfo{SampleRate: 8000, Format: FormatMulaw}.Silence(10 * time.Millisecond)
	if len(mulaw) != 80 {
		t.Fatalf("expected 80 bytes of mulaw silence, got %d", len(mulaw))
	}
	for _, b := range mulaw {
		if b != 0xFF {
			t.Fatalf("expected mulaw silence 0xFF, got %#x", b)
		}
	}

	for _, b := range DefaultEncodingInfo().Silence(time.Millisecond) {
		if b != 0 {
			t.Fatalf("expected linear16 silence 0, got %#x", b)
		}
	}
}

func TestEncodingInfoValidate(t *testing.T) {
	if err := DefaultEncodingInfo().Validate(); err != nil {
		t.Fatalf("expected default encoding to be valid, got %v", err)
	}
	if err := (EncodingInfo{SampleRate: 16000, Format: "opus"}).Validate(); err == nil {
		t.Fatalf("expected unknown format to be rejected")
	}
}
