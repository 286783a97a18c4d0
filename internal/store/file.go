package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/vector"
)

const (
	identitiesFile = "identities.json"
	vectorsFile    = "vectors.bin"
	attendanceFile = "attendance.json"
)

// FileStore keeps identities as a JSON metadata list paired with a packed
// binary vector array, index-aligned, plus an append-only JSON attendance
// log. Both identity files are rewritten together on every mutation so
// readers never observe a half-written pair.
type FileStore struct {
	dir string

	mu         sync.RWMutex
	identities []Identity
	records    []AttendanceRecord
	nextID     int64
}

// OpenFileStore loads (or initializes) a file-backed store in dir.
// A length mismatch between the metadata list and the vector array is
// reported as ErrStorageInconsistent and the store refuses to open.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &FileStore{dir: dir, nextID: 1}

	metas, err := s.loadMetadata()
	if err != nil {
		return nil, err
	}
	vectors, err := s.loadVectors()
	if err != nil {
		return nil, err
	}

	if len(metas) != len(vectors) {
		return nil, fmt.Errorf("%w: %d identities, %d vectors",
			ErrStorageInconsistent, len(metas), len(vectors))
	}

	s.identities = make([]Identity, len(metas))
	for i, m := range metas {
		s.identities[i] = Identity{
			ID:         m.ID,
			Name:       m.Name,
			Vector:     vectors[i],
			EnrolledAt: m.EnrolledAt,
		}
		if m.ID >= s.nextID {
			s.nextID = m.ID + 1
		}
	}

	if s.records, err = s.loadRecords(); err != nil {
		return nil, err
	}

	return s, nil
}

// identityMeta is the on-disk metadata shape; vectors live in the
// parallel binary file.
type identityMeta struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func (s *FileStore) loadMetadata() ([]identityMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, identitiesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity metadata: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var metas []identityMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("%w: parsing identity metadata: %v", ErrStorageInconsistent, err)
	}
	return metas, nil
}

func (s *FileStore) loadVectors() ([]vector.FaceVector, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, vectorsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vector array: %w", err)
	}

	rowBytes := vector.Dim * 4
	if len(data)%rowBytes != 0 {
		return nil, fmt.Errorf("%w: vector file size %d is not a multiple of row size %d",
			ErrStorageInconsistent, len(data), rowBytes)
	}

	vectors := make([]vector.FaceVector, 0, len(data)/rowBytes)
	for off := 0; off < len(data); off += rowBytes {
		v := make(vector.FaceVector, vector.Dim)
		for i := range v {
			bits := binary.LittleEndian.Uint32(data[off+i*4:])
			v[i] = math.Float32frombits(bits)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (s *FileStore) loadRecords() ([]AttendanceRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, attendanceFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading attendance log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []AttendanceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing attendance log: %w", err)
	}
	return records, nil
}

// persistIdentities writes the metadata list and the vector array. Called
// with the write lock held.
func (s *FileStore) persistIdentities() error {
	metas := make([]identityMeta, len(s.identities))
	vecData := make([]byte, 0, len(s.identities)*vector.Dim*4)
	row := make([]byte, vector.Dim*4)

	for i, id := range s.identities {
		metas[i] = identityMeta{ID: id.ID, Name: id.Name, EnrolledAt: id.EnrolledAt}
		for j, f := range id.Vector {
			binary.LittleEndian.PutUint32(row[j*4:], math.Float32bits(f))
		}
		vecData = append(vecData, row...)
	}

	metaJSON, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, identitiesFile), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing identity metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, vectorsFile), vecData, 0o644); err != nil {
		return fmt.Errorf("writing vector array: %w", err)
	}
	return nil
}

func (s *FileStore) persistRecords() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding attendance log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, attendanceFile), data, 0o644); err != nil {
		return fmt.Errorf("writing attendance log: %w", err)
	}
	return nil
}

// ListIdentities returns all identities in enrollment order.
func (s *FileStore) ListIdentities(ctx context.Context) ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Identity, len(s.identities))
	for i, id := range s.identities {
		out[i] = id
		out[i].Vector = id.Vector.Clone()
	}
	return out, nil
}

// GetIdentity retrieves one identity by ID.
func (s *FileStore) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ident := range s.identities {
		if ident.ID == id {
			out := ident
			out.Vector = ident.Vector.Clone()
			return &out, nil
		}
	}
	return nil, ErrIdentityNotFound
}

// CountIdentities returns the number of enrolled identities.
func (s *FileStore) CountIdentities(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities), nil
}

// CreateIdentity stores a new identity and assigns the next ID.
func (s *FileStore) CreateIdentity(ctx context.Context, name string, vec vector.FaceVector) (*Identity, error) {
	if err := vec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ident := Identity{
		ID:         s.nextID,
		Name:       name,
		Vector:     vec.Clone(),
		EnrolledAt: time.Now(),
	}
	s.identities = append(s.identities, ident)
	s.nextID++

	if err := s.persistIdentities(); err != nil {
		s.identities = s.identities[:len(s.identities)-1]
		s.nextID--
		return nil, err
	}

	out := ident
	out.Vector = ident.Vector.Clone()
	return &out, nil
}

// UpdateIdentityVector replaces the enrolled vector of an existing
// identity, keeping ID and name.
func (s *FileStore) UpdateIdentityVector(ctx context.Context, id int64, vec vector.FaceVector) error {
	if err := vec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.identities {
		if s.identities[i].ID == id {
			old := s.identities[i].Vector
			s.identities[i].Vector = vec.Clone()
			if err := s.persistIdentities(); err != nil {
				s.identities[i].Vector = old
				return err
			}
			return nil
		}
	}
	return ErrIdentityNotFound
}

// AppendRecord appends one accepted punch event to the log.
func (s *FileStore) AppendRecord(ctx context.Context, rec AttendanceRecord) error {
	if !rec.Event.Valid() {
		return fmt.Errorf("invalid event type %q", rec.Event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if err := s.persistRecords(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

// ListRecords returns all records in append order.
func (s *FileStore) ListRecords(ctx context.Context) ([]AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AttendanceRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// RecordsOn returns records whose timestamp falls on the given day.
func (s *FileStore) RecordsOn(ctx context.Context, day time.Time) ([]AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := day.Date()
	var out []AttendanceRecord
	for _, rec := range s.records {
		ry, rm, rd := rec.Timestamp.Date()
		if ry == y && rm == m && rd == d {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close is a no-op for the file backend; every mutation is flushed
// synchronously.
func (s *FileStore) Close() error {
	return nil
}
