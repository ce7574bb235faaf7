// Package mmap maps local blob files read-only into memory so that artifact
// headers and payloads are read without copying through a read buffer.
//
//	f, err := mmap.Open("pq.vqnt")
//	if err != nil { ... }
//	defer f.Close()
//
//	header, _ := f.View(0, 64)
//
// Unix uses mmap(2) and madvise(MADV_SEQUENTIAL); Windows uses
// CreateFileMapping/MapViewOfFile. A File is safe for concurrent reads.
// Views alias the mapping and must not be used after Close.
package mmap
