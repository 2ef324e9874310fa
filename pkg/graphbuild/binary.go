package graphbuild

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/ingest"
)

// Binary snapshot format for a built Graph, so a repeated job against the
// same polygon/feature set can skip re-running intersection detection and
// vertex snapping: a magic-header + CRC32-trailer + length-prefixed-slice
// shape, sized for the adjacency-list Graph's variable-length edge
// geometry and tags.
const (
	magicBytes      = "RTECOVER"
	snapshotVersion = uint32(1)
	maxNodes        = 10_000_000
	maxEdges        = 50_000_000
)

type snapshotHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
	NextKey  uint64
}

// WriteSnapshot serializes g to path, atomically (write to a temp file,
// then rename) so a crash mid-write never leaves a truncated snapshot.
func WriteSnapshot(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	hdr := snapshotHeader{
		Version:  snapshotVersion,
		NumNodes: uint32(g.NumNodes()),
		NumEdges: uint32(g.NumEdges()),
		NextKey:  g.nextKey,
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, n := range g.order {
		if err := binary.Write(cw, binary.LittleEndian, n); err != nil {
			return fmt.Errorf("write node: %w", err)
		}
	}

	keys := make([]uint64, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		e := g.edges[k]
		if err := writeEdge(cw, e); err != nil {
			return fmt.Errorf("write edge %d: %w", k, err)
		}
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadSnapshot deserializes a Graph previously written by WriteSnapshot.
func ReadSnapshot(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr snapshotHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	g := NewGraph()
	g.nextKey = hdr.NextKey

	for i := uint32(0); i < hdr.NumNodes; i++ {
		var n geo.NodeID
		if err := binary.Read(cr, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		g.AddNode(n)
	}

	for i := uint32(0); i < hdr.NumEdges; i++ {
		e, err := readEdge(cr)
		if err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}
		g.AddNode(e.From)
		g.AddNode(e.To)
		g.edges[e.Key] = e
		g.out[e.From] = append(g.out[e.From], e.Key)
		g.in[e.To] = append(g.in[e.To], e.Key)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	return g, nil
}

func writeEdge(w io.Writer, e *Edge) error {
	if err := binary.Write(w, binary.LittleEndian, e.Key); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.From); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.To); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.LengthM); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(e.Kind)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Geometry))); err != nil {
		return err
	}
	for _, p := range e.Geometry {
		if err := binary.Write(w, binary.LittleEndian, p); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Tags))); err != nil {
		return err
	}
	for k, v := range e.Tags {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readEdge(r io.Reader) (*Edge, error) {
	e := &Edge{}
	if err := binary.Read(r, binary.LittleEndian, &e.Key); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.From); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.To); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.LengthM); err != nil {
		return nil, err
	}
	var kind int32
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, err
	}
	e.Kind = EdgeKind(kind)

	var numPoints uint32
	if err := binary.Read(r, binary.LittleEndian, &numPoints); err != nil {
		return nil, err
	}
	e.Geometry = make([]geo.Point, numPoints)
	for i := range e.Geometry {
		if err := binary.Read(r, binary.LittleEndian, &e.Geometry[i]); err != nil {
			return nil, err
		}
	}

	var numTags uint32
	if err := binary.Read(r, binary.LittleEndian, &numTags); err != nil {
		return nil, err
	}
	e.Tags = make(ingest.Tags, numTags)
	for i := uint32(0); i < numTags; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		e.Tags[k] = v
	}

	return e, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// CRC32 wrapping writers/readers for the snapshot trailer.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
