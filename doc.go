// Package ustar implements the USTar (POSIX tar) archive format: a
// 512-byte header codec, an in-memory mutable archive container, and a
// streaming parser that handles input in arbitrary chunk sizes with
// bounded memory.
//
// # Quick Start
//
// Build an archive in memory and serialize it:
//
//	a := ustar.New()
//	err := a.AppendString("hello.txt", "Hello, World!")
//	if err != nil {
//	    return err
//	}
//	_, err = a.Stream(ctx, out, ustar.StreamWithCompression(ustar.CompressionGzip))
//
// Pack a directory straight to a writer:
//
//	_, err := ustar.PackTo(ctx, "./src", out)
//
// Extract an archive to a directory without buffering file bodies:
//
//	err := ustar.Extract(ctx, in, "./dst",
//	    ustar.ExtractWithCompression(ustar.CompressionGzip),
//	)
//
// Or load it fully into memory for inspection:
//
//	a, err := ustar.Load(ctx, in)
//	for e := range a.Entries() {
//	    fmt.Println(e.Path, e.Size)
//	}
//
// # Format
//
// Only the USTar layout is supported: GNU long-name extensions and pax
// extended headers are out of scope, which caps entry paths at the
// 155+100 byte prefix/name split and body sizes at 8^12-1 bytes. An
// archive ends with a 1024-byte zero marker; a single all-zero block
// is accepted as the end-of-archive sentinel when reading.
//
// Containers are not safe for concurrent mutation; serialization via
// [Archive.Stream] is one-shot because it consumes entry bodies.
package ustar
