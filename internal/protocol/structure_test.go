package protocol

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/sample"
	"shipforge.ai/internal/ship/tuning"
	"shipforge.ai/internal/ship/validation"
)

func TestDecodeStructure_RoundTrip(t *testing.T) {
	in := sample.Corvette()
	raw, err := EncodeStructure(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeStructure(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.Len() != in.Len() {
		t.Fatalf("got %s/%d want %s/%d", out.ID, out.Len(), in.ID, in.Len())
	}
	for i := range in.Blocks {
		if out.Blocks[i] != in.Blocks[i] {
			t.Fatalf("block %d: %+v != %+v", i, out.Blocks[i], in.Blocks[i])
		}
	}
}

func TestDecodeStructure_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"empty", ``, ErrSchema},
		{"no blocks", `{"id":"x"}`, ErrSchema},
		{"missing pos", `{"blocks":[{"size":{"x":1,"y":1,"z":1},"category":"Hull"}]}`, ErrSchema},
		{"zero size", `{"blocks":[{"pos":{"x":0,"y":0,"z":0},"size":{"x":0,"y":1,"z":1},"category":"Hull"}]}`, ErrSchema},
		{"color range", `{"blocks":[{"pos":{"x":0,"y":0,"z":0},"size":{"x":1,"y":1,"z":1},"category":"Hull","color":{"r":300}}]}`, ErrSchema},
		{"unknown category", `{"blocks":[{"pos":{"x":0,"y":0,"z":0},"size":{"x":1,"y":1,"z":1},"category":"Teleporter"}]}`, ErrBadRequest},
		{"unknown shape", `{"blocks":[{"pos":{"x":0,"y":0,"z":0},"size":{"x":1,"y":1,"z":1},"category":"Hull","shape":"Sphere"}]}`, ErrBadRequest},
	}
	for _, tc := range cases {
		_, err := DecodeStructure([]byte(tc.raw))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if got := CodeFor(err); got != tc.code {
			t.Fatalf("%s: code=%s want %s (%v)", tc.name, got, tc.code, err)
		}
		if !IsKnownCode(CodeFor(err)) {
			t.Fatalf("%s: unknown code", tc.name)
		}
	}
}

func TestDecodeStructure_NamesAreNormalized(t *testing.T) {
	raw := `{"blocks":[{"pos":{"x":0,"y":0,"z":0},"size":{"x":1,"y":1,"z":1},"category":"hyperdrive_core","shape":"half-block"}]}`
	s, err := DecodeStructure([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := s.Blocks[0]; b.Category != blocks.HyperdriveCore || b.Shape != blocks.HalfBlock {
		t.Fatalf("block=%+v", b)
	}
}

func TestNewReportMsg_InfinitePowerRatioIsNull(t *testing.T) {
	s := blocks.NewStructure("hulk")
	for x := 0; x < 4; x++ {
		s.Append(blocks.Block{Pos: blocks.V(float64(x), 0, 0), Size: blocks.V(1, 1, 1), Category: blocks.Hull})
	}
	s.Append(blocks.Block{Pos: blocks.V(0, 0, 1), Size: blocks.V(1, 1, 1), Category: blocks.Generator})
	rep, err := validation.New(nil, tuning.Defaults()).Run(s, validation.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !math.IsInf(rep.Summary.PowerMargin, 1) {
		t.Fatalf("power margin=%v", rep.Summary.PowerMargin)
	}
	m := NewReportMsg("r", rep)
	if m.Summary.PowerMargin != nil || m.Functional.PowerRatio != nil {
		t.Fatalf("infinite ratio must encode as null")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if m.Metadata[validation.KeyPowerMargin] != "inf" {
		t.Fatalf("metadata=%v", m.Metadata)
	}
	if err := ValidateJSON(SchemaReport, raw); err != nil {
		t.Fatalf("schema: %v", err)
	}
}

func TestNewValidationError(t *testing.T) {
	_, err := validation.New(nil, tuning.Defaults()).Run(sample.Corvette(), validation.RunOptions{StyleID: "ghost"})
	if m := NewValidationError("r", err); m.Code != ErrUnknownStyle || m.Type != TypeError {
		t.Fatalf("msg=%+v", m)
	}
	_, err = validation.New(nil, tuning.Defaults()).Run(blocks.NewStructure("void"), validation.RunOptions{})
	if m := NewValidationError("r", err); m.Code != ErrEmptyStructure {
		t.Fatalf("msg=%+v", m)
	}
	if !errors.Is(err, blocks.ErrEmptyStructure) {
		t.Fatalf("err=%v", err)
	}
}
