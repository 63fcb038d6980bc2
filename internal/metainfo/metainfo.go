// Package metainfo holds the in-memory model of a .torrent file: the
// hashed info dictionary, the surrounding display metadata and the
// tracker tiers. Mutation goes through validated setters; any change to
// a field inside info drops the cached infohash.
package metainfo

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"torrkit/internal/bencode"
)

const (
	// DefaultPieceLength is used when the caller does not pick one.
	DefaultPieceLength = 4 << 20

	// DefaultCreatedBy is stamped into new torrents unless suppressed.
	DefaultCreatedBy = "torrkit/0.3"

	// DefaultEncoding is the text encoding recorded in new torrents.
	DefaultEncoding = "UTF-8"

	commonPieceLengthMin = 256 << 10
	commonPieceLengthMax = 32 << 20
)

// ValidationError reports a mutation that would violate a model
// invariant. The model is left unchanged.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metainfo: invalid %s: %s", e.Field, e.Msg)
}

// FileEntry is one file of the content: its length in bytes and its
// path inside the torrent as individual segments.
type FileEntry struct {
	Length int64
	Path   []string
}

// Metainfo is a complete torrent description. The zero value is not
// usable; construct with New, NewSingleFile or NewMultiFile, or load
// bytes with Read.
type Metainfo struct {
	tiers        [][]string
	comment      string
	createdBy    string
	creationDate int64
	encoding     string

	name        string
	pieceLength int64
	pieces      []byte
	private     bool
	source      string
	length      int64
	files       []FileEntry
	multiFile   bool

	infoHash  [20]byte
	hashValid bool
}

// New returns an empty model carrying the package defaults.
func New() *Metainfo {
	return &Metainfo{
		pieceLength: DefaultPieceLength,
		encoding:    DefaultEncoding,
	}
}

// NewSingleFile builds a single-file info dictionary.
func NewSingleFile(name string, length, pieceLength int64) (*Metainfo, error) {
	m := New()
	if err := m.SetPieceLength(pieceLength); err != nil {
		return nil, err
	}
	if err := m.SetName(name); err != nil {
		return nil, err
	}
	if err := m.SetLength(length); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMultiFile builds a multi-file info dictionary.
func NewMultiFile(name string, files []FileEntry, pieceLength int64) (*Metainfo, error) {
	m := New()
	if err := m.SetPieceLength(pieceLength); err != nil {
		return nil, err
	}
	if err := m.SetName(name); err != nil {
		return nil, err
	}
	if err := m.SetFiles(files); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metainfo) invalidate() { m.hashValid = false }

// Getters.

func (m *Metainfo) Name() string        { return m.name }
func (m *Metainfo) PieceLength() int64  { return m.pieceLength }
func (m *Metainfo) Private() bool       { return m.private }
func (m *Metainfo) Source() string      { return m.source }
func (m *Metainfo) Comment() string     { return m.comment }
func (m *Metainfo) CreatedBy() string   { return m.createdBy }
func (m *Metainfo) CreationDate() int64 { return m.creationDate }
func (m *Metainfo) Encoding() string    { return m.encoding }

// SingleFile reports whether the model is in single-file mode.
func (m *Metainfo) SingleFile() bool { return !m.multiFile }

// Length returns the content length in single-file mode, 0 otherwise.
func (m *Metainfo) Length() int64 {
	if m.multiFile {
		return 0
	}
	return m.length
}

// Files returns the multi-file entries, nil in single-file mode.
func (m *Metainfo) Files() []FileEntry {
	if !m.multiFile {
		return nil
	}
	out := make([]FileEntry, len(m.files))
	copy(out, m.files)
	return out
}

// FileList returns the content files regardless of mode. In single-file
// mode it is one synthetic entry whose path is the torrent name.
func (m *Metainfo) FileList() []FileEntry {
	if m.multiFile {
		return m.Files()
	}
	if m.name == "" && m.length == 0 {
		return nil
	}
	return []FileEntry{{Length: m.length, Path: []string{m.name}}}
}

// FileCount returns the number of content files.
func (m *Metainfo) FileCount() int { return len(m.FileList()) }

// TotalLength returns the summed content length in bytes.
func (m *Metainfo) TotalLength() int64 {
	if !m.multiFile {
		return m.length
	}
	var total int64
	for _, f := range m.files {
		total += f.Length
	}
	return total
}

// Pieces returns the raw concatenated 20-byte piece digests.
func (m *Metainfo) Pieces() []byte {
	out := make([]byte, len(m.pieces))
	copy(out, m.pieces)
	return out
}

// PieceCount returns the number of stored piece digests.
func (m *Metainfo) PieceCount() int { return len(m.pieces) / 20 }

// ExpectedPieceCount returns ceil(total/pieceLength), the count the
// stored digests must match.
func (m *Metainfo) ExpectedPieceCount() int {
	total := m.TotalLength()
	if total == 0 || m.pieceLength <= 0 {
		return 0
	}
	return int((total + m.pieceLength - 1) / m.pieceLength)
}

// PieceHash returns the stored digest at index i.
func (m *Metainfo) PieceHash(i int) ([20]byte, bool) {
	var h [20]byte
	if i < 0 || i >= m.PieceCount() {
		return h, false
	}
	copy(h[:], m.pieces[i*20:])
	return h, true
}

// PieceHashes returns all stored digests.
func (m *Metainfo) PieceHashes() [][20]byte {
	count := m.PieceCount()
	out := make([][20]byte, count)
	for i := 0; i < count; i++ {
		copy(out[i][:], m.pieces[i*20:])
	}
	return out
}

// Setters for fields inside info. Each drops the cached infohash.

// SetName sets the suggested root name.
func (m *Metainfo) SetName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if strings.ContainsAny(name, `/\`) {
		return &ValidationError{Field: "name", Msg: "must not contain path separators"}
	}
	m.name = name
	m.invalidate()
	return nil
}

// SetPieceLength sets the piece size in bytes. It must be a positive
// power of two. Changing it drops any stored piece digests since they
// no longer line up.
func (m *Metainfo) SetPieceLength(n int64) error {
	if n <= 0 || n&(n-1) != 0 {
		return &ValidationError{Field: "piece length", Msg: fmt.Sprintf("%d is not a positive power of two", n)}
	}
	if n != m.pieceLength {
		m.pieceLength = n
		m.pieces = nil
		m.invalidate()
	}
	return nil
}

// SetLength switches the model to single-file mode with the given
// content length. Stored piece digests are dropped.
func (m *Metainfo) SetLength(n int64) error {
	if n < 0 {
		return &ValidationError{Field: "length", Msg: "must not be negative"}
	}
	m.length = n
	m.files = nil
	m.multiFile = false
	m.pieces = nil
	m.invalidate()
	return nil
}

// SetFiles switches the model to multi-file mode with the given entries.
// Entry order defines the hashing byte stream. Stored piece digests are
// dropped.
func (m *Metainfo) SetFiles(files []FileEntry) error {
	if len(files) == 0 {
		return &ValidationError{Field: "files", Msg: "must not be empty in multi-file mode"}
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.Length < 0 {
			return &ValidationError{Field: "files", Msg: "file length must not be negative"}
		}
		if err := validatePath(f.Path); err != nil {
			return err
		}
		key := strings.Join(f.Path, "/")
		if _, ok := seen[key]; ok {
			return &ValidationError{Field: "files", Msg: fmt.Sprintf("duplicate path %q", key)}
		}
		seen[key] = struct{}{}
	}
	m.files = make([]FileEntry, len(files))
	copy(m.files, files)
	m.length = 0
	m.multiFile = true
	m.pieces = nil
	m.invalidate()
	return nil
}

// SetPieces stores the concatenated 20-byte piece digests. The byte
// length must equal 20 times the expected piece count.
func (m *Metainfo) SetPieces(pieces []byte) error {
	if len(pieces)%20 != 0 {
		return &ValidationError{Field: "pieces", Msg: "length must be a multiple of 20"}
	}
	if expected := m.ExpectedPieceCount(); len(pieces)/20 != expected {
		return &ValidationError{
			Field: "pieces",
			Msg:   fmt.Sprintf("got %d digests, content requires %d", len(pieces)/20, expected),
		}
	}
	m.pieces = make([]byte, len(pieces))
	copy(m.pieces, pieces)
	m.invalidate()
	return nil
}

// SetPrivate sets the private tracker flag.
func (m *Metainfo) SetPrivate(private bool) {
	m.private = private
	m.invalidate()
}

// SetSource sets the source tag used by private trackers. It lives
// inside info, so it changes the infohash.
func (m *Metainfo) SetSource(source string) {
	m.source = source
	m.invalidate()
}

// Setters for fields outside info. These never require rehashing.

func (m *Metainfo) SetComment(comment string)   { m.comment = comment }
func (m *Metainfo) SetCreatedBy(creator string) { m.createdBy = creator }
func (m *Metainfo) SetCreationDate(epoch int64) { m.creationDate = epoch }
func (m *Metainfo) SetEncoding(encoding string) { m.encoding = encoding }

func validatePath(path []string) error {
	if len(path) == 0 {
		return &ValidationError{Field: "files", Msg: "file path must not be empty"}
	}
	for _, seg := range path {
		switch {
		case seg == "":
			return &ValidationError{Field: "files", Msg: "file path has an empty component"}
		case seg == "." || seg == "..":
			return &ValidationError{Field: "files", Msg: fmt.Sprintf("file path has a relative component %q", seg)}
		case strings.ContainsAny(seg, `/\`):
			return &ValidationError{Field: "files", Msg: fmt.Sprintf("file path component %q contains a separator", seg)}
		}
	}
	return nil
}

// InfoHash returns the SHA1 of the canonical bencoding of the info
// dictionary. The result is cached until an info field changes.
func (m *Metainfo) InfoHash() [20]byte {
	if !m.hashValid {
		m.infoHash = sha1.Sum(bencode.Encode(m.infoDict()))
		m.hashValid = true
	}
	return m.infoHash
}

// InfoHashHex returns the infohash as 40 lowercase hex characters.
func (m *Metainfo) InfoHashHex() string {
	h := m.InfoHash()
	return hex.EncodeToString(h[:])
}

func (m *Metainfo) infoDict() bencode.Dict {
	d := bencode.Dict{
		"name":         bencode.String(m.name),
		"piece length": bencode.Integer(m.pieceLength),
		"pieces":       bencode.String(m.pieces),
	}
	if m.multiFile {
		files := make(bencode.List, 0, len(m.files))
		for _, f := range m.files {
			path := make(bencode.List, 0, len(f.Path))
			for _, seg := range f.Path {
				path = append(path, bencode.String(seg))
			}
			files = append(files, bencode.Dict{
				"length": bencode.Integer(f.Length),
				"path":   path,
			})
		}
		d["files"] = files
	} else {
		d["length"] = bencode.Integer(m.length)
	}
	if m.private {
		d["private"] = bencode.Integer(1)
	}
	if m.source != "" {
		d["source"] = bencode.String(m.source)
	}
	return d
}

// PieceSpan returns the half-open piece index range [first, end)
// covering file i of FileList. Zero-length files yield an empty range.
func (m *Metainfo) PieceSpan(i int) (first, end int) {
	var offset int64
	for idx, f := range m.FileList() {
		if idx == i {
			if f.Length == 0 || m.pieceLength <= 0 {
				p := int(offset / max(m.pieceLength, 1))
				return p, p
			}
			first = int(offset / m.pieceLength)
			end = int((offset + f.Length + m.pieceLength - 1) / m.pieceLength)
			return first, end
		}
		offset += f.Length
	}
	return 0, 0
}

// FilesInPiece returns the indexes into FileList of the files whose
// bytes overlap piece p.
func (m *Metainfo) FilesInPiece(p int) []int {
	if m.pieceLength <= 0 {
		return nil
	}
	lo := int64(p) * m.pieceLength
	hi := lo + m.pieceLength
	if total := m.TotalLength(); hi > total {
		hi = total
	}
	var out []int
	var offset int64
	for i, f := range m.FileList() {
		start, stop := offset, offset+f.Length
		if start < hi && stop > lo {
			out = append(out, i)
		}
		offset = stop
		if offset >= hi {
			break
		}
	}
	return out
}

// Problems returns human-readable inconsistencies in the current model.
// An empty result means the torrent is ready to be written.
func (m *Metainfo) Problems() []string {
	var out []string
	if m.name == "" {
		out = append(out, "torrent name has not been set")
	}
	if m.pieceLength <= 0 {
		out = append(out, "piece length cannot be 0")
	}
	if len(m.FileList()) == 0 {
		out = append(out, "there is no source file within the torrent")
	}
	if len(m.pieces) == 0 {
		out = append(out, "piece hash is empty")
	}
	total := m.TotalLength()
	if total == 0 {
		out = append(out, "total content size is 0")
	}
	if count := int64(m.PieceCount()); m.pieceLength > 0 && total > 0 {
		if m.pieceLength*(count-1) > total {
			out = append(out, "too many pieces for content size")
		}
		if m.pieceLength*count < total {
			out = append(out, "too few pieces for content size")
		}
	}
	return out
}

// UncommonPieceLength reports whether n falls outside the range most
// clients produce. Such sizes are legal but worth a warning.
func UncommonPieceLength(n int64) bool {
	return n < commonPieceLengthMin || n > commonPieceLengthMax
}

// Magnet returns the magnet link for the torrent: infohash plus display
// name, content length and tracker parameters.
func (m *Metainfo) Magnet() string {
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(m.InfoHashHex())
	if m.name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(m.name))
	}
	if total := m.TotalLength(); total > 0 {
		b.WriteString("&xl=")
		b.WriteString(strconv.FormatInt(total, 10))
	}
	for _, tracker := range m.Trackers() {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tracker))
	}
	return b.String()
}
