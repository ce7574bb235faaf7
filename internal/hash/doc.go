// Package hash provides the CRC32-Castagnoli (CRC32C) checksums used to
// verify persisted artifact payloads and object store uploads.
//
//	checksum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
//
// Go's hash/crc32 uses SSE4.2 or the ARM CRC extension when available.
package hash
