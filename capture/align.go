package capture

import "unsafe"

func bytesOf(words []uint64) []byte {
	if len(words) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
}
