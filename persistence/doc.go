// Package persistence encodes quantization artifacts as self-describing
// binary files.
//
// # File Layout
//
//	[Header: 64 bytes, little endian][payload: Header.StoredSize bytes]
//
// The header records the artifact type, the codec used for the payload, the
// compression applied to it and a CRC32C of the stored payload bytes. Readers
// therefore need no out-of-band information to load a file.
//
// Header fields:
//
//	Magic       [4]byte   "VQNT"
//	Version     uint16
//	Type        uint8     quantization.Type
//	Compression uint8     0=none, 1=lz4, 2=zstd
//	Codec       [16]byte  codec name, zero padded
//	ID          [16]byte  UUID assigned at encode time
//	RawSize     uint64    payload size before compression
//	StoredSize  uint64    payload size on disk
//	Checksum    uint32    CRC32C of the stored payload
//	Reserved    [4]byte
package persistence
