package domain

import "time"

// ContainerWAV is the only container the transcription pipeline accepts.
const ContainerWAV = "wav"

// AudioClip is one captured recording as handed over by an audio source.
type AudioClip struct {
	Data       []byte
	Container  string
	SampleRate int
}

func NewWAVClip(data []byte) AudioClip {
	return AudioClip{Data: data, Container: ContainerWAV}
}

func (c AudioClip) Empty() bool {
	return len(c.Data) == 0
}

// Waveform is a clip normalized to 16-bit mono PCM in a canonical WAV container.
type Waveform struct {
	WAV        []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
}
