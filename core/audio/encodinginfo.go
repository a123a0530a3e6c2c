package audio

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

type encodingFormat string

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingLinear16 encodingFormat = "linear16"
)

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}
