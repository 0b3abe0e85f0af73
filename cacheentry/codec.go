package cacheentry

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kbuild-go/kobjcache/checksum"
)

// On-disk format (spec section 6): a deterministic, length-prefixed binary
// record. There is no generated-message framework backing this format (see
// DESIGN.md for why google.golang.org/protobuf isn't used here); it's a
// bespoke record, matching the original's own bespoke raw-buffer format.
//
//	magic      [4]byte  "KOCE"
//	version    uint8
//	objectPath string   (length-prefixed)
//	argvCount  uint32
//	argv[i]    string   (length-prefixed), argvCount times
//	cppPath    string   (length-prefixed)
//	sumCount   uint32
//	sum[i]     checksum.Fingerprint, sumCount times
var magic = [4]byte{'K', 'O', 'C', 'E'}

const formatVersion = 1

func putUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func putString(dst []byte, s string) []byte {
	dst = putUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func putStrings(dst []byte, strs []string) []byte {
	dst = putUint32(dst, uint32(len(strs)))
	for _, s := range strs {
		dst = putString(dst, s)
	}
	return dst
}

func getUint32(src []byte) (uint32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return binary.BigEndian.Uint32(src[:4]), src[4:], true
}

func getString(src []byte) (string, []byte, bool) {
	n, rest, ok := getUint32(src)
	if !ok || uint64(n) > uint64(len(rest)) {
		return "", src, false
	}
	return string(rest[:n]), rest[n:], true
}

func getStrings(src []byte) ([]string, []byte, bool) {
	count, rest, ok := getUint32(src)
	if !ok {
		return nil, src, false
	}
	strs := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		var s string
		s, rest, ok = getString(rest)
		if !ok {
			return nil, src, false
		}
		strs = append(strs, s)
	}
	return strs, rest, true
}

// encode serializes the entry's persistent fields (not its ephemeral,
// in-memory-only fields) into the on-disk format.
func (e *Entry) encode() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, magic[:]...)
	buf = append(buf, byte(formatVersion))
	buf = putString(buf, e.ObjectPath)
	buf = putStrings(buf, e.CompileArgv)
	buf = putString(buf, e.PreprocessorOutputPath)
	buf = putUint32(buf, uint32(len(e.Accepted)))
	for _, sum := range e.Accepted {
		buf = sum.Encode(buf)
	}
	return buf
}

// decode parses raw into the entry's persistent fields. It returns an error
// on any malformed or version-mismatched input; the caller treats that as a
// cache miss rather than propagating it (spec section 6).
func (e *Entry) decode(raw []byte) error {
	if len(raw) < len(magic)+1 || [4]byte{raw[0], raw[1], raw[2], raw[3]} != magic {
		return errors.New("cache entry: bad magic")
	}
	rest := raw[len(magic):]
	version := rest[0]
	rest = rest[1:]
	if version != formatVersion {
		return errors.Errorf("cache entry: unsupported format version %d", version)
	}

	objectPath, rest, ok := getString(rest)
	if !ok {
		return errors.New("cache entry: truncated object path")
	}
	argv, rest, ok := getStrings(rest)
	if !ok {
		return errors.New("cache entry: truncated compile argv")
	}
	cppPath, rest, ok := getString(rest)
	if !ok {
		return errors.New("cache entry: truncated preprocessor output path")
	}
	sumCount, rest, ok := getUint32(rest)
	if !ok {
		return errors.New("cache entry: truncated fingerprint count")
	}
	sums := make(checksum.Set, 0, sumCount)
	for i := uint32(0); i < sumCount; i++ {
		var sum checksum.Fingerprint
		var decoded bool
		sum, rest, decoded = checksum.Decode(rest)
		if !decoded {
			return errors.New("cache entry: truncated fingerprint")
		}
		sums = append(sums, sum)
	}

	e.ObjectPath = objectPath
	e.CompileArgv = argv
	e.PreprocessorOutputPath = cppPath
	e.Accepted = sums
	return nil
}
