package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

type chunk struct {
	id   string
	body []byte
}

func buildRIFF(chunks ...chunk) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.body)))
		body.Write(c.body)
		if len(c.body)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func fmtChunk(audioFormat uint16, channels, sampleRate, bits int) chunk {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, audioFormat)
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	return chunk{id: "fmt ", body: b.Bytes()}
}

func dataChunk(v any) chunk {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, v)
	return chunk{id: "data", body: b.Bytes()}
}

func TestEncodeDecode(t *testing.T) {
	sampleRate := 8000
	samples := make([]int16, 800)
	for i := range samples {
		samples[i] = int16(16383 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	data, err := Encode(samples, sampleRate)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if len(data) != headerSize+len(samples)*2 {
		t.Errorf("size: got %d, want %d", len(data), headerSize+len(samples)*2)
	}

	a, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if a.Format.SampleRate != sampleRate || a.Format.Channels != 1 || a.Format.BitsPerSample != 16 {
		t.Errorf("format: got %+v", a.Format)
	}

	if a.Duration() != 100*time.Millisecond {
		t.Errorf("duration: got %v, want 100ms", a.Duration())
	}

	got := a.Mono16()
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestEncode_Errors(t *testing.T) {
	if _, err := Encode(nil, 8000); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty samples: got %v, want ErrNoSamples", err)
	}
	if _, err := Encode([]int16{1}, 0); err == nil {
		t.Error("zero sample rate should fail")
	}
}

func TestDecode_StereoDownmix(t *testing.T) {
	data := buildRIFF(
		fmtChunk(FormatPCM, 2, 44100, 16),
		dataChunk([]int16{1000, 3000, -2000, -4000}),
	)

	a, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got := a.Mono16()
	want := []int16{2000, -3000}
	if len(got) != len(want) {
		t.Fatalf("frames: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecode_SampleWidths(t *testing.T) {
	tests := []struct {
		name   string
		format chunk
		data   chunk
		want   []int16
	}{
		{
			name:   "8-bit unsigned",
			format: fmtChunk(FormatPCM, 1, 8000, 8),
			data:   dataChunk([]uint8{128, 255, 0, 192}),
			want:   []int16{0, 127 << 8, -32768, 64 << 8},
		},
		{
			name:   "24-bit",
			format: fmtChunk(FormatPCM, 1, 16000, 24),
			data:   chunk{id: "data", body: []byte{0x00, 0x10, 0x00, 0x00, 0x00, 0x80}},
			want:   []int16{16, -32768},
		},
		{
			name:   "32-bit int",
			format: fmtChunk(FormatPCM, 1, 16000, 32),
			data:   dataChunk([]int32{1 << 20, -1 << 30}),
			want:   []int16{16, -16384},
		},
		{
			name:   "32-bit float",
			format: fmtChunk(FormatIEEEFloat, 1, 48000, 32),
			data:   dataChunk([]float32{0, 1, -2}),
			want:   []int16{0, math.MaxInt16, -math.MaxInt16},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Decode(buildRIFF(tt.format, tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			got := a.Mono16()
			if len(got) != len(tt.want) {
				t.Fatalf("samples: got %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecode_SkipsUnknownChunks(t *testing.T) {
	data := buildRIFF(
		chunk{id: "LIST", body: []byte("INFOISFT\x05\x00\x00\x00test\x00")},
		fmtChunk(FormatPCM, 1, 16000, 16),
		chunk{id: "fact", body: []byte{1, 0, 0, 0}},
		dataChunk([]int16{7, 8, 9}),
	)

	a, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if a.Frames() != 3 {
		t.Errorf("frames: got %d, want 3", a.Frames())
	}
}

func TestDecode_UnpatchedDataSize(t *testing.T) {
	data := buildRIFF(fmtChunk(FormatPCM, 1, 16000, 16), dataChunk([]int16{1, 2, 3, 4}))
	// Pretend the recorder never rewrote the data length.
	binary.LittleEndian.PutUint32(data[40:44], 0xFFFFFFFF)

	a, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if a.Frames() != 4 {
		t.Errorf("frames: got %d, want 4", a.Frames())
	}
}

func TestDecode_Invalid(t *testing.T) {
	valid := buildRIFF(fmtChunk(FormatPCM, 1, 16000, 16), dataChunk([]int16{1}))

	notWave := append([]byte{}, valid...)
	copy(notWave[8:12], "AVI ")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotWAV},
		{"not riff", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00\x00\x00"), ErrNotWAV},
		{"not wave", notWave, ErrNotWAV},
		{"missing fmt", buildRIFF(dataChunk([]int16{1, 2})), ErrNotWAV},
		{"missing data", buildRIFF(fmtChunk(FormatPCM, 1, 16000, 16)), ErrNotWAV},
		{"no samples", buildRIFF(fmtChunk(FormatPCM, 1, 16000, 16), chunk{id: "data"}), ErrNoSamples},
		{"mu-law", buildRIFF(fmtChunk(7, 1, 8000, 8), dataChunk([]uint8{1, 2})), ErrUnsupported},
		{"12-bit", buildRIFF(fmtChunk(FormatPCM, 1, 8000, 12), dataChunk([]uint8{1, 2})), ErrUnsupported},
		{"zero channels", buildRIFF(fmtChunk(FormatPCM, 0, 8000, 16), dataChunk([]int16{1})), ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	data := buildRIFF(
		fmtChunk(FormatPCM, 2, 41000, 16),
		dataChunk([]int16{100, 300, 500, 700}),
	)

	out, src, err := Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if src.Format.Channels != 2 {
		t.Errorf("source channels: got %d, want 2", src.Format.Channels)
	}

	a, err := Decode(out)
	if err != nil {
		t.Fatalf("decoding normalized audio: %v", err)
	}
	if a.Format.Channels != 1 || a.Format.BitsPerSample != 16 || a.Format.SampleRate != 41000 {
		t.Errorf("normalized format: got %+v", a.Format)
	}
	if len(out) != headerSize+4 {
		t.Errorf("normalized size: got %d, want %d", len(out), headerSize+4)
	}
}
