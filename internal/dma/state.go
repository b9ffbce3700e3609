package dma

import (
	"bytes"
	"encoding/gob"
)

func encodeHDMAState(s hdmaState) []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func decodeHDMAState(data []byte) (hdmaState, bool) {
	var s hdmaState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return hdmaState{}, false
	}
	return s, true
}
