package metainfo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"torrkit/internal/bencode"
)

// StructureError reports well-formed bencode that is not a usable
// torrent: a required key is absent or carries the wrong type.
type StructureError struct {
	Key string
	Msg string
}

func (e *StructureError) Error() string {
	if e.Key == "" {
		return "metainfo: " + e.Msg
	}
	return fmt.Sprintf("metainfo: %s: %s", e.Key, e.Msg)
}

// Read decodes torrent bytes into a validated model. Malformed bencode
// surfaces as *bencode.DecodeError, a missing or mistyped required key
// as *StructureError.
func Read(data []byte) (*Metainfo, error) {
	v, err := bencode.Decode(data)
	if err != nil {
		return nil, err
	}
	top, ok := v.(bencode.Dict)
	if !ok {
		return nil, &StructureError{Msg: "top-level value is not a dictionary"}
	}
	infoValue, ok := top["info"]
	if !ok {
		return nil, &StructureError{Key: "info", Msg: "missing"}
	}
	info, ok := infoValue.(bencode.Dict)
	if !ok {
		return nil, &StructureError{Key: "info", Msg: "not a dictionary"}
	}

	m := &Metainfo{}
	if m.name, err = requiredString(info, "name"); err != nil {
		return nil, err
	}
	if m.pieceLength, err = requiredInt(info, "piece length"); err != nil {
		return nil, err
	}
	pieces, err := requiredBytes(info, "pieces")
	if err != nil {
		return nil, err
	}
	if len(pieces)%20 != 0 {
		return nil, &StructureError{Key: "info.pieces", Msg: "length is not a multiple of 20"}
	}
	m.pieces = pieces

	_, hasLength := info["length"]
	_, hasFiles := info["files"]
	switch {
	case hasLength && hasFiles:
		return nil, &StructureError{Key: "info", Msg: "has both length and files"}
	case hasLength:
		if m.length, err = requiredInt(info, "length"); err != nil {
			return nil, err
		}
		if m.length < 0 {
			return nil, &StructureError{Key: "info.length", Msg: "negative"}
		}
	case hasFiles:
		if m.files, err = decodeFiles(info["files"]); err != nil {
			return nil, err
		}
		m.multiFile = true
	default:
		return nil, &StructureError{Key: "info", Msg: "has neither length nor files"}
	}

	if p, ok := info["private"].(bencode.Integer); ok {
		m.private = p != 0
	}
	if s, ok := info["source"].(bencode.String); ok {
		m.source = string(s)
	}

	// Display metadata outside info is best effort: a mistyped optional
	// key is dropped rather than rejected.
	if s, ok := top["comment"].(bencode.String); ok {
		m.comment = string(s)
	}
	if s, ok := top["created by"].(bencode.String); ok {
		m.createdBy = string(s)
	}
	if n, ok := top["creation date"].(bencode.Integer); ok {
		m.creationDate = int64(n)
	}
	if s, ok := top["encoding"].(bencode.String); ok {
		m.encoding = string(s)
	}
	m.tiers = decodeTrackers(top)
	return m, nil
}

// ReadFile reads and decodes a .torrent file.
func ReadFile(path string) (*Metainfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading torrent: %w", err)
	}
	return Read(data)
}

// Write serializes the model into canonical torrent bytes. Serializing
// twice without mutation yields identical bytes.
func Write(m *Metainfo) []byte {
	top := bencode.Dict{"info": m.infoDict()}
	if announce := m.Announce(); announce != "" {
		top["announce"] = bencode.String(announce)
	}
	// announce-list only carries weight with two or more URLs (BEP 12).
	if m.trackerCount() >= 2 {
		tiers := make(bencode.List, 0, len(m.tiers))
		for _, tier := range m.tiers {
			l := make(bencode.List, 0, len(tier))
			for _, u := range tier {
				l = append(l, bencode.String(u))
			}
			tiers = append(tiers, l)
		}
		top["announce-list"] = tiers
	}
	if m.comment != "" {
		top["comment"] = bencode.String(m.comment)
	}
	if m.createdBy != "" {
		top["created by"] = bencode.String(m.createdBy)
	}
	if m.creationDate > 0 {
		top["creation date"] = bencode.Integer(m.creationDate)
	}
	if m.encoding != "" {
		top["encoding"] = bencode.String(m.encoding)
	}
	return bencode.Encode(top)
}

// EncodedSize returns the byte size of the current encoding.
func (m *Metainfo) EncodedSize() int { return len(Write(m)) }

// WriteFile writes the torrent to path. A directory path gets
// "<name>.torrent" appended. Existing files are not replaced unless
// overwrite is set. Returns the path actually written.
func WriteFile(m *Metainfo, path string, overwrite bool) (string, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, m.Name()+".torrent")
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("writing torrent %q: %w", path, fs.ErrExist)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("writing torrent: %w", err)
		}
	}
	if err := os.WriteFile(path, Write(m), 0644); err != nil {
		return "", fmt.Errorf("writing torrent: %w", err)
	}
	return path, nil
}

func requiredString(d bencode.Dict, key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", &StructureError{Key: "info." + key, Msg: "missing"}
	}
	s, ok := v.(bencode.String)
	if !ok {
		return "", &StructureError{Key: "info." + key, Msg: "not a byte string"}
	}
	return string(s), nil
}

func requiredBytes(d bencode.Dict, key string) ([]byte, error) {
	s, err := requiredString(d, key)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func requiredInt(d bencode.Dict, key string) (int64, error) {
	v, ok := d[key]
	if !ok {
		return 0, &StructureError{Key: "info." + key, Msg: "missing"}
	}
	n, ok := v.(bencode.Integer)
	if !ok {
		return 0, &StructureError{Key: "info." + key, Msg: "not an integer"}
	}
	return int64(n), nil
}

func decodeFiles(v bencode.Value) ([]FileEntry, error) {
	list, ok := v.(bencode.List)
	if !ok {
		return nil, &StructureError{Key: "info.files", Msg: "not a list"}
	}
	if len(list) == 0 {
		return nil, &StructureError{Key: "info.files", Msg: "empty"}
	}
	files := make([]FileEntry, 0, len(list))
	for _, item := range list {
		entry, ok := item.(bencode.Dict)
		if !ok {
			return nil, &StructureError{Key: "info.files", Msg: "entry is not a dictionary"}
		}
		length, ok := entry["length"].(bencode.Integer)
		if !ok {
			return nil, &StructureError{Key: "info.files.length", Msg: "missing or not an integer"}
		}
		pathList, ok := entry["path"].(bencode.List)
		if !ok {
			return nil, &StructureError{Key: "info.files.path", Msg: "missing or not a list"}
		}
		path := make([]string, 0, len(pathList))
		for _, seg := range pathList {
			s, ok := seg.(bencode.String)
			if !ok {
				return nil, &StructureError{Key: "info.files.path", Msg: "segment is not a byte string"}
			}
			path = append(path, string(s))
		}
		files = append(files, FileEntry{Length: int64(length), Path: path})
	}
	return files, nil
}

// decodeTrackers merges announce and announce-list into tiers. The
// plain announce URL is promoted to its own first tier when the list
// does not already carry it.
func decodeTrackers(top bencode.Dict) [][]string {
	var tiers [][]string
	seen := make(map[string]struct{})
	if list, ok := top["announce-list"].(bencode.List); ok {
		for _, tierValue := range list {
			tierList, ok := tierValue.(bencode.List)
			if !ok {
				continue
			}
			var tier []string
			for _, u := range tierList {
				if s, ok := u.(bencode.String); ok && len(s) > 0 {
					tier = append(tier, string(s))
					seen[string(s)] = struct{}{}
				}
			}
			if len(tier) > 0 {
				tiers = append(tiers, tier)
			}
		}
	}
	if s, ok := top["announce"].(bencode.String); ok && len(s) > 0 {
		if _, dup := seen[string(s)]; !dup {
			tiers = append([][]string{{string(s)}}, tiers...)
		}
	}
	return tiers
}
