// this file holds helpers for interleaved little-endian integer PCM
package myaudio

import (
	"encoding/binary"
)

// bytesPerSample returns the byte width of one sample.
func bytesPerSample(bitDepth int) int {
	return bitDepth / 8
}

// fullScale returns the absolute value of the most negative sample for the
// bit depth, the reference for dBFS conversion.
func fullScale(bitDepth int) float64 {
	switch bitDepth {
	case 16:
		return 32768.0
	case 24:
		return 8388608.0
	default:
		return 2147483648.0
	}
}

// readSample decodes the idx-th sample from interleaved PCM data.
func readSample(data []byte, idx, bitDepth int) int {
	switch bitDepth {
	case 16:
		off := idx * 2
		return int(int16(binary.LittleEndian.Uint16(data[off : off+2])))
	case 24:
		off := idx * 3
		v := int32(data[off]) | int32(data[off+1])<<8 | int32(data[off+2])<<16
		// Sign extend from 24 bits
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return int(v)
	default:
		off := idx * 4
		return int(int32(binary.LittleEndian.Uint32(data[off : off+4])))
	}
}

// writeSample encodes v as the idx-th sample of interleaved PCM data.
func writeSample(data []byte, idx, bitDepth, v int) {
	switch bitDepth {
	case 16:
		binary.LittleEndian.PutUint16(data[idx*2:], uint16(int16(v)))
	case 24:
		off := idx * 3
		data[off] = byte(v)
		data[off+1] = byte(v >> 8)
		data[off+2] = byte(v >> 16)
	default:
		binary.LittleEndian.PutUint32(data[idx*4:], uint32(int32(v)))
	}
}

// sampleCount returns how many whole samples the data holds.
func sampleCount(data []byte, bitDepth int) int {
	return len(data) / bytesPerSample(bitDepth)
}

// byteSliceToInts converts interleaved PCM bytes to integer samples.
func byteSliceToInts(pcm []byte, bitDepth int) []int {
	n := sampleCount(pcm, bitDepth)
	samples := make([]int, n)
	for i := range samples {
		samples[i] = readSample(pcm, i, bitDepth)
	}
	return samples
}

// intsToByteSlice converts integer samples back to interleaved PCM bytes.
func intsToByteSlice(samples []int, bitDepth int) []byte {
	pcm := make([]byte, len(samples)*bytesPerSample(bitDepth))
	for i, v := range samples {
		writeSample(pcm, i, bitDepth, v)
	}
	return pcm
}

// selectChannel extracts one channel from interleaved PCM data.
func selectChannel(pcm []byte, channels, bitDepth, channel int) []byte {
	if channels == 1 {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out
	}

	sb := bytesPerSample(bitDepth)
	frames := len(pcm) / (channels * sb)
	out := make([]byte, frames*sb)
	for f := 0; f < frames; f++ {
		src := (f*channels + channel) * sb
		copy(out[f*sb:(f+1)*sb], pcm[src:src+sb])
	}
	return out
}

// clampSample limits v to the valid range for the bit depth.
func clampSample(v float64, bitDepth int) int {
	limit := fullScale(bitDepth)
	if v > limit-1 {
		v = limit - 1
	} else if v < -limit {
		v = -limit
	}
	return int(v)
}
